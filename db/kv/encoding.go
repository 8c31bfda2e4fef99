package kv

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"

	"github.com/golang/snappy"
	"go.opencensus.io/trace"
)

func decode(ctx context.Context, data []byte, dst interface{}) error {
	_, span := trace.StartSpan(ctx, "DashboardDB.decode")
	defer span.End()

	data, err := snappy.Decode(nil, data)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return err
	}
	return nil
}

func encode(ctx context.Context, v interface{}) ([]byte, error) {
	_, span := trace.StartSpan(ctx, "DashboardDB.encode")
	defer span.End()

	if v == nil || (reflect.ValueOf(v).Kind() == reflect.Ptr && reflect.ValueOf(v).IsNil()) {
		return nil, errors.New("cannot encode nil value")
	}
	enc, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	return snappy.Encode(nil, enc), nil
}
