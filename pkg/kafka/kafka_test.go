package kafka

import (
	"testing"
)

type questionEvent struct {
	Question string `json:"question"`
	Cached   bool   `json:"cached"`
}

func TestEncodeDecode(t *testing.T) {
	messages, err := encode([]Event{
		{Key: "req-1", Value: questionEvent{Question: "who is hamlet", Cached: true}},
		{Key: "req-2", Value: questionEvent{Question: "where is verona"}},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(messages) != 2 || string(messages[0].Key) != "req-1" {
		t.Fatalf("messages = %+v", messages)
	}

	got, err := DecodeJSON[questionEvent](messages[0].Value)
	if err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if got.Question != "who is hamlet" || !got.Cached {
		t.Errorf("decoded = %+v", got)
	}
}

func TestEncodeRejectsUnmarshalable(t *testing.T) {
	if _, err := encode([]Event{{Key: "bad", Value: make(chan int)}}); err == nil {
		t.Error("expected marshal error")
	}
}

func TestDecodeJSONError(t *testing.T) {
	if _, err := DecodeJSON[questionEvent]([]byte("{not json")); err == nil {
		t.Error("expected decode error")
	}
}
