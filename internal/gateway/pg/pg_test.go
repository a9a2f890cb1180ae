package pg

import (
	"testing"

	"github.com/LamboYu/codever/internal/apperrors"
	"github.com/LamboYu/codever/internal/gateway"
	"github.com/LamboYu/codever/internal/snippets"
	"github.com/LamboYu/codever/internal/userdata"
)

func TestPageIDs(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e"}

	tests := []struct {
		name string
		p    gateway.Page
		want []string
	}{
		{"unpaginated", gateway.Page{}, ids},
		{"first page", gateway.Page{Page: 1, Limit: 2}, []string{"a", "b"}},
		{"last partial page", gateway.Page{Page: 3, Limit: 2}, []string{"e"}},
		{"past the end", gateway.Page{Page: 4, Limit: 2}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pageIDs(ids, tt.p)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v want %v", got, tt.want)
				}
			}
		})
	}
}

func TestOrderByIDsKeepsListOrder(t *testing.T) {
	found := []*snippets.Snippet{{ID: "c"}, {ID: "a"}}
	got := orderByIDs(found, []string{"a", "b", "c"})

	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Fatalf("unexpected order: %v, %v", got[0].ID, got[1].ID)
	}
}

func TestPersonalOrderBy(t *testing.T) {
	for _, o := range []snippets.Order{snippets.OrderLastCreated, snippets.OrderMostLikes, snippets.OrderMostUsed} {
		if _, err := personalOrderBy(o); err != nil {
			t.Fatalf("order %s: %v", o, err)
		}
	}
	_, err := personalOrderBy("RANDOM")
	if !apperrors.IsKind(err, apperrors.KindInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestCapHistory(t *testing.T) {
	d := &userdata.Document{}
	for i := 0; i < MaxHistory+5; i++ {
		d.History = append(d.History, string(rune('a'+i%26))+string(rune('0'+i/26)))
	}
	first := d.History[0]

	capHistory(d)
	if len(d.History) != MaxHistory {
		t.Fatalf("expected %d entries, got %d", MaxHistory, len(d.History))
	}
	if d.History[0] != first {
		t.Fatalf("expected most recent entry kept first")
	}
}
