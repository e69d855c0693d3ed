package validation

import (
	"errors"
	"testing"
)

type sendPayload struct {
	ReceiverID string `json:"receiverId" validate:"notblank"`
	Text       string `json:"text" validate:"notblank"`
}

func TestStructAcceptsValidPayload(t *testing.T) {
	if err := Struct(sendPayload{ReceiverID: "u2", Text: "hi"}); err != nil {
		t.Fatalf("expected valid payload, got %v", err)
	}
}

func TestStructReportsBlankFieldsByJSONName(t *testing.T) {
	err := Struct(sendPayload{ReceiverID: "", Text: "   "})

	var verr *Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected *Error, got %T %v", err, err)
	}
	if len(verr.Fields) != 2 {
		t.Fatalf("expected 2 field errors, got %+v", verr.Fields)
	}
	if verr.Fields[0].Field != "receiverId" || verr.Fields[1].Field != "text" {
		t.Fatalf("expected json field names, got %+v", verr.Fields)
	}
	if verr.Error() != "receiverId is required; text is required" {
		t.Fatalf("unexpected message: %q", verr.Error())
	}
}
