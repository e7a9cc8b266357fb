package kafka

import (
	"context"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

func ProtoHandler[M proto.Message](ctor func() M, handle func(context.Context, []byte, M) error) Handler {
	return func(ctx context.Context, key, value []byte) error {
		msg := ctor()
		if err := proto.Unmarshal(value, msg); err != nil {
			return err
		}
		return handle(ctx, key, msg)
	}
}

// Envelope is a decoded event: its kind plus the JSON form of the whole struct, ready
// for json.Unmarshal into the kind's payload type.
type Envelope struct {
	Kind string
	JSON []byte
}

// EnvelopeHandler decodes google.protobuf.Struct event messages carrying a "kind" field.
func EnvelopeHandler(handle func(context.Context, Envelope) error) Handler {
	return ProtoHandler(
		func() *structpb.Struct { return &structpb.Struct{} },
		func(ctx context.Context, _ []byte, s *structpb.Struct) error {
			kind := s.GetFields()["kind"].GetStringValue()
			if kind == "" {
				return fmt.Errorf("event without kind")
			}
			b, err := protojson.Marshal(s)
			if err != nil {
				return fmt.Errorf("event to json: %w", err)
			}
			return handle(ctx, Envelope{Kind: kind, JSON: b})
		},
	)
}

// NewEnvelope builds the Struct form of an event from a JSON-compatible map.
func NewEnvelope(kind string, fields map[string]any) (*structpb.Struct, error) {
	m := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		m[k] = v
	}
	m["kind"] = kind
	return structpb.NewStruct(m)
}
