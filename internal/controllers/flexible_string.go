package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// FlexibleString takes a JSON string or number. Lesson periods arrive as
// "1-2" from some clients and as 3 from others; numeric passwords are common.
type FlexibleString string

func (fs *FlexibleString) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		*fs = FlexibleString(strings.TrimSpace(v))
	case json.Number:
		*fs = FlexibleString(v.String())
	default:
		return fmt.Errorf("want string or number, got %s", bytes.TrimSpace(data))
	}
	return nil
}

func (fs FlexibleString) String() string { return string(fs) }
