package lighthouse

import "testing"

func TestInspect_UniformImageIsBlurry(t *testing.T) {
	ins := NewInspector(0) // default threshold
	img := imageFromJPEG(t, makeJPEG(64, 64))
	verdict := ins.Inspect(img)
	if !verdict.IsBlurry {
		t.Error("uniform image should be flagged blurry")
	}
	if verdict.SharpnessScore != 0 {
		t.Errorf("SharpnessScore = %v, want 0 for uniform image", verdict.SharpnessScore)
	}
}

func TestInspect_CheckerboardIsSharp(t *testing.T) {
	ins := NewInspector(0)
	verdict := ins.Inspect(checkerImage(64, 64))
	if verdict.IsBlurry {
		t.Errorf("checkerboard flagged blurry (score %v, threshold %v)",
			verdict.SharpnessScore, ins.Threshold())
	}
	if verdict.SharpnessScore <= DefaultBlurThreshold {
		t.Errorf("SharpnessScore = %v, want > %v", verdict.SharpnessScore, DefaultBlurThreshold)
	}
}

func TestInspect_ThresholdIsTunable(t *testing.T) {
	// A deliberately absurd threshold flags even a checkerboard.
	ins := NewInspector(1e9)
	if verdict := ins.Inspect(checkerImage(64, 64)); !verdict.IsBlurry {
		t.Error("expected blurry verdict under a 1e9 threshold")
	}
}

func TestInspect_Deterministic(t *testing.T) {
	ins := NewInspector(0)
	img := checkerImage(48, 48)
	first := ins.Inspect(img)
	second := ins.Inspect(img)
	if first != second {
		t.Errorf("repeated inspection differs: %+v vs %+v", first, second)
	}
}

func TestInspect_DegenerateImageDoesNotPanic(t *testing.T) {
	ins := NewInspector(0)
	verdict := ins.Inspect(checkerImage(2, 2)) // below kernel size
	if verdict.SharpnessScore != 0 || !verdict.IsBlurry {
		t.Errorf("2x2 image: got %+v, want zero score and blurry", verdict)
	}
}
