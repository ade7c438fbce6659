package domain_test

import (
	"errors"
	"testing"

	"okrhub/internal/domain"
)

func TestNextObjectiveOrder(t *testing.T) {
	cases := []struct {
		name   string
		orders []int
		want   int
	}{
		{"empty", nil, 10},
		{"gaps", []int{10, 30, 5}, 40},
		{"negative only", []int{-5}, 10},
	}
	for _, tc := range cases {
		var objectives []domain.Objective
		for _, o := range tc.orders {
			objectives = append(objectives, domain.Objective{Order: o})
		}
		if got := domain.NextObjectiveOrder(objectives); got != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, got)
		}
	}
}

func TestTimeFrameSetValidate(t *testing.T) {
	set := domain.NewTimeFrameSet("Current")
	if err := set.Validate(); err != nil {
		t.Fatalf("fresh set invalid: %v", err)
	}
	cur, ok := set.Current()
	if !ok || cur.Name != "Current" {
		t.Fatalf("expected current time frame, got %+v", cur)
	}

	set.CurrentTimeFrameID = "missing"
	if err := set.Validate(); !errors.Is(err, domain.ErrInvalidTimeFrameSet) {
		t.Fatalf("expected invalid set, got %v", err)
	}
	if err := (domain.TimeFrameSet{}).Validate(); err == nil {
		t.Fatalf("expected empty set to be invalid")
	}
}

func TestAddTimeFrameDoesNotAlias(t *testing.T) {
	set := domain.NewTimeFrameSet("Q1")
	next, tf := set.AddTimeFrame("Q2")
	if len(set.TimeFrames) != 1 {
		t.Fatalf("original set mutated: %+v", set.TimeFrames)
	}
	if len(next.TimeFrames) != 2 || tf.Order != 1 {
		t.Fatalf("unexpected append result: %+v", next.TimeFrames)
	}
	if got, ok := next.FindByName("Q2"); !ok || got.ID != tf.ID {
		t.Fatalf("lookup by name failed")
	}
}

func TestParseKRStatus(t *testing.T) {
	for _, s := range domain.KRStatuses() {
		got, err := domain.ParseKRStatus(s.Label())
		if err != nil || got != s {
			t.Fatalf("label %q: got %q err %v", s.Label(), got, err)
		}
	}
	if _, err := domain.ParseKRStatus("Blocked"); err == nil {
		t.Fatalf("expected unknown status to fail")
	}
}

func TestObjectiveCloneAndKRStatus(t *testing.T) {
	area := "a1"
	o := domain.Objective{ID: "o1", AreaID: &area, WorkItems: []int{1}, KRs: []domain.KeyResult{{ID: "kr1", Status: domain.KRNotStarted}}}
	c := o.Clone()
	c.WorkItems[0] = 99
	*c.AreaID = "other"
	if o.WorkItems[0] != 1 || *o.AreaID != "a1" {
		t.Fatalf("clone shares state with original")
	}
	if err := c.SetKRStatus("kr1", domain.KRAtRisk); err != nil {
		t.Fatal(err)
	}
	if o.KRs[0].Status != domain.KRNotStarted || c.KRs[0].Status != domain.KRAtRisk {
		t.Fatalf("unexpected statuses %q %q", o.KRs[0].Status, c.KRs[0].Status)
	}
	if err := c.SetKRStatus("nope", domain.KRAtRisk); err == nil {
		t.Fatalf("expected missing kr error")
	}
	if !o.InArea("a1") || o.InArea("a2") {
		t.Fatalf("InArea mismatch")
	}
}
