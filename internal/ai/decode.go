package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// DecodeObject extracts the first JSON object from raw and decodes it into
// out using json tags. Scalars are coerced loosely: models return "7" as
// often as 7.
func DecodeObject(raw string, out any) error {
	block, err := ExtractJSONObject(raw)
	if err != nil {
		return err
	}
	var generic map[string]any
	if err := json.Unmarshal(block, &generic); err != nil {
		return fmt.Errorf("%w: %v", ErrParse, err)
	}
	return weakDecode(generic, out)
}

// DecodeArray decodes the first JSON array in raw into out. When an object
// comes first, the array is read from its key field instead.
func DecodeArray(raw string, key string, out any) error {
	s := StripFences(raw)
	arrAt := strings.IndexByte(s, '[')
	objAt := strings.IndexByte(s, '{')
	if arrAt >= 0 && (objAt < 0 || arrAt < objAt) {
		block, err := ExtractJSONArray(s)
		if err != nil {
			return err
		}
		var generic []any
		if err := json.Unmarshal(block, &generic); err != nil {
			return fmt.Errorf("%w: %v", ErrParse, err)
		}
		return weakDecode(generic, out)
	}

	var wrapper map[string]any
	if err := DecodeObject(s, &wrapper); err != nil {
		return err
	}
	inner, ok := wrapper[key]
	if !ok {
		return fmt.Errorf("%w: no %q array", ErrParse, key)
	}
	return weakDecode(inner, out)
}

func weakDecode(in, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(in); err != nil {
		return fmt.Errorf("%w: %v", ErrParse, err)
	}
	return nil
}
