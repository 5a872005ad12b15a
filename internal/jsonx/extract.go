// Package jsonx extracts structured JSON payloads from free-text LLM
// output. Models are asked for pure JSON but routinely wrap it in code
// fences or prose; every caller that parses model output goes through
// this package instead of scraping text itself.
package jsonx

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// ExtractArray locates the first JSON array in text and unmarshals it into
// out. It tolerates markdown code fences and surrounding prose.
func ExtractArray(text string, out any) error {
	raw, err := extract(text, '[', ']')
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return eris.Wrap(err, "jsonx: unmarshal array")
	}
	return nil
}

// ExtractObject locates the first JSON object in text and unmarshals it
// into out.
func ExtractObject(text string, out any) error {
	raw, err := extract(text, '{', '}')
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return eris.Wrap(err, "jsonx: unmarshal object")
	}
	return nil
}

func extract(text string, open, closing byte) ([]byte, error) {
	text = stripFences(text)

	start := strings.IndexByte(text, open)
	end := strings.LastIndexByte(text, closing)
	if start < 0 || end <= start {
		return nil, eris.Errorf("jsonx: no %c...%c payload in text", open, closing)
	}
	return []byte(text[start : end+1]), nil
}

// stripFences removes a leading markdown code fence (```json or bare ```)
// and its closing fence.
func stripFences(text string) string {
	text = strings.TrimSpace(text)

	for _, prefix := range []string{"```json", "```"} {
		if strings.HasPrefix(text, prefix) {
			text = strings.TrimPrefix(text, prefix)
			if idx := strings.LastIndex(text, "```"); idx >= 0 {
				text = text[:idx]
			}
			break
		}
	}
	return strings.TrimSpace(text)
}
