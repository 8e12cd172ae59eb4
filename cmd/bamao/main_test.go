package main

import (
	"reflect"
	"testing"
)

func TestRewriteDirectOpenArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "no args",
			in:   []string{"bamao"},
			want: []string{"bamao"},
		},
		{
			name: "direct id first token",
			in:   []string{"bamao", "42"},
			want: []string{"bamao", "files", "open", "42"},
		},
		{
			name: "direct id after value flag",
			in:   []string{"bamao", "--server", "http://x/api", "42"},
			want: []string{"bamao", "--server", "http://x/api", "files", "open", "42"},
		},
		{
			name: "direct id after equals flag",
			in:   []string{"bamao", "--config-dir=./tmp", "42"},
			want: []string{"bamao", "--config-dir=./tmp", "files", "open", "42"},
		},
		{
			name: "direct id after bool flag",
			in:   []string{"bamao", "--pretty", "42"},
			want: []string{"bamao", "--pretty", "files", "open", "42"},
		},
		{
			name: "direct id after double dash",
			in:   []string{"bamao", "--", "42"},
			want: []string{"bamao", "--", "files", "open", "42"},
		},
		{
			name: "zero is not an id",
			in:   []string{"bamao", "0"},
			want: []string{"bamao", "0"},
		},
		{
			name: "normal subcommand not rewritten",
			in:   []string{"bamao", "files", "open", "42"},
			want: []string{"bamao", "files", "open", "42"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := rewriteDirectOpenArgs(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("rewriteDirectOpenArgs:\n got: %#v\nwant: %#v", got, tt.want)
			}
		})
	}
}
