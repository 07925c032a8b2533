package main

import (
	"errors"
	"slices"
	"testing"

	"github.com/playperu/typerace/internal/docstore"
)

func TestCollections(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    []string
		wantErr error
	}{
		{"no args", nil, docstore.Collections, nil},
		{"all", []string{"runs", "all"}, docstore.Collections, nil},
		{"named", []string{"runs", "profiles"}, []string{"runs", "profiles"}, nil},
		{"unknown", []string{"games"}, nil, docstore.ErrUnknownCollection},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := collections(tt.args)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("collections = %v, want %v", got, tt.want)
			}
		})
	}
}
