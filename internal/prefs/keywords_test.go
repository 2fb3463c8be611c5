// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

package prefs

import (
	"reflect"
	"testing"
)

func TestTopKeywords(t *testing.T) {
	tests := []struct {
		name string
		text string
		n    int
		want []string
	}{
		{
			name: "frequency wins",
			text: "logo design, modern logo, simple logo sketch",
			n:    2,
			want: []string{"logo", "design"},
		},
		{
			name: "ties break alphabetically",
			text: "paint fence paint fence garden",
			n:    3,
			want: []string{"fence", "paint", "garden"},
		},
		{
			name: "stopwords and short tokens dropped",
			text: "we need help with the a an to it",
			n:    5,
			want: nil,
		},
		{
			name: "zero n",
			text: "anything",
			n:    0,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TopKeywords(tt.text, tt.n)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("TopKeywords() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTopKeywordsDeterministic(t *testing.T) {
	text := "deliver groceries downtown deliver parcel downtown quickly"
	first := TopKeywords(text, 4)
	for i := 0; i < 10; i++ {
		if got := TopKeywords(text, 4); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d produced %v, first run produced %v", i, got, first)
		}
	}
}
