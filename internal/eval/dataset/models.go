package dataset

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// FrameRecord is one labelled camera frame in an evaluation dataset.
// In JSONL the image is base64 text; in Parquet it is a byte array column.
type FrameRecord struct {
	ID               string   `parquet:"id" json:"id"`
	Image            []byte   `parquet:"image" json:"image"`
	LocationHint     string   `parquet:"location_hint,optional" json:"location_hint,omitempty"`
	Interests        []string `parquet:"interests,list" json:"interests,omitempty"`
	ExpectedKeywords []string `parquet:"expected_keywords,list" json:"expected_keywords,omitempty"`
}

// Validate reports rows that cannot be evaluated
func (r FrameRecord) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("record has no id")
	}
	if len(r.Image) == 0 {
		return fmt.Errorf("record %s has no image", r.ID)
	}
	return nil
}

// ImagePayload returns the frame in the base64 form clients send
func (r FrameRecord) ImagePayload() string {
	return base64.StdEncoding.EncodeToString(r.Image)
}
