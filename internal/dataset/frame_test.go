package dataset_test

import (
	"errors"
	"reflect"
	"testing"

	"app_reviews/internal/dataset"
)

func TestFromRecords_ColumnOrderIsStable(t *testing.T) {
	f := dataset.FromRecords([]map[string]any{
		{"b": 1, "a": 2},
		{"c": 3, "a": 4},
	})
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(f.Columns, want) {
		t.Fatalf("columns: got %v want %v", f.Columns, want)
	}
	if f.Len() != 2 {
		t.Fatalf("rows: %d", f.Len())
	}
}

func TestProject(t *testing.T) {
	f := dataset.FromRecords([]map[string]any{
		{"review": "nice", "id": "1", "extra": true},
	})

	tests := []struct {
		name     string
		priority []string
		want     []string
		wantErr  bool
	}{
		{"priority order kept", []string{"id", "userName", "review"}, []string{"id", "review"}, false},
		{"reversed priority", []string{"review", "id"}, []string{"review", "id"}, false},
		{"empty intersection", []string{"rating", "date"}, nil, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := f.Project(tc.priority)
			if tc.wantErr {
				if !errors.Is(err, dataset.ErrNoColumns) {
					t.Fatalf("expected ErrNoColumns, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if !reflect.DeepEqual(got.Columns, tc.want) {
				t.Fatalf("columns: got %v want %v", got.Columns, tc.want)
			}
			if _, ok := got.Rows[0]["extra"]; ok {
				t.Fatalf("projected row kept a dropped column: %v", got.Rows[0])
			}
		})
	}
}

func TestFilterAndApply(t *testing.T) {
	f := dataset.New("n")
	for i := 0; i < 4; i++ {
		f.Rows = append(f.Rows, dataset.Row{"n": i})
	}
	even := f.Filter(func(r dataset.Row) bool { return r["n"].(int)%2 == 0 })
	if even.Len() != 2 {
		t.Fatalf("filter: %d rows", even.Len())
	}
	even.Apply("double", func(r dataset.Row) any { return r["n"].(int) * 2 })
	if !even.Has("double") || even.Rows[1]["double"] != 4 {
		t.Fatalf("apply: %+v", even.Rows)
	}
	if f.Has("double") {
		t.Fatalf("apply must not change the parent column list")
	}
}
