package lighthouse

import (
	"bytes"

	"github.com/bep/imagemeta"
)

// ImageMetadata holds the attribution fields worth keeping on the audit
// record: who took the image and who claims rights over it. Extraction is
// pure enrichment and never gates validity.
type ImageMetadata struct {
	Artist    string
	Copyright string
	Credit    string
}

// wantedTags maps (source, tag-name) → true for every tag we care about.
var wantedTags = map[imagemeta.Source]map[string]bool{
	imagemeta.IPTC: {
		"CopyrightNotice": true,
		"Credit":          true,
		"Byline":          true,
	},
	imagemeta.EXIF: {
		"Copyright": true,
		"Artist":    true,
	},
}

// ExtractImageMetadata parses EXIF/IPTC attribution metadata from raw image
// bytes. Returns nil if the data is empty, unparseable, or carries none of
// the wanted fields. Graceful degradation: never returns an error.
func ExtractImageMetadata(data []byte) *ImageMetadata {
	if len(data) == 0 {
		return nil
	}

	meta := &ImageMetadata{}
	found := false

	_, err := imagemeta.Decode(imagemeta.Options{
		R:       bytes.NewReader(data),
		Sources: imagemeta.EXIF | imagemeta.IPTC,
		ShouldHandleTag: func(ti imagemeta.TagInfo) bool {
			if tags, ok := wantedTags[ti.Source]; ok {
				return tags[ti.Tag]
			}
			return false
		},
		HandleTag: func(ti imagemeta.TagInfo) error {
			s := tagValueString(ti.Value)
			if s == "" {
				return nil
			}
			switch ti.Tag {
			case "Artist", "Byline":
				if meta.Artist == "" {
					meta.Artist = s
					found = true
				}
			case "Copyright", "CopyrightNotice":
				if meta.Copyright == "" {
					meta.Copyright = s
					found = true
				}
			case "Credit":
				meta.Credit = s
				found = true
			}
			return nil
		},
	})

	if err != nil || !found {
		return nil
	}

	return meta
}

// tagValueString extracts a string from a tag value. Some sources deliver
// list values; the first entry wins.
func tagValueString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []string:
		if len(val) > 0 {
			return val[0]
		}
		return ""
	case []any:
		if len(val) > 0 {
			if s, ok := val[0].(string); ok {
				return s
			}
		}
		return ""
	default:
		return ""
	}
}
