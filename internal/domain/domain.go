package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var ErrInvalidTimeFrameSet = errors.New("invalid time frame set")

type Objective struct {
	ID          string      `json:"id"`
	Name        string      `json:"Name"`
	Description string      `json:"Description,omitempty"`
	Owner       string      `json:"Owner,omitempty"`
	AreaID      *string     `json:"AreaId"`
	Order       int         `json:"order"`
	KRs         []KeyResult `json:"KRs,omitempty"`
	Comments    string      `json:"Comments,omitempty"`
	WorkItems   []int       `json:"WorkItems,omitempty"`
}

func (o Objective) DocumentID() string { return o.ID }

func (o Objective) WithID(id string) Objective {
	o.ID = id
	return o
}

// InArea reports whether the objective is grouped under areaID.
func (o Objective) InArea(areaID string) bool {
	return o.AreaID != nil && *o.AreaID == areaID
}

// Clone returns a copy that shares no slices with o.
func (o Objective) Clone() Objective {
	if o.AreaID != nil {
		id := *o.AreaID
		o.AreaID = &id
	}
	if o.KRs != nil {
		o.KRs = append([]KeyResult(nil), o.KRs...)
	}
	if o.WorkItems != nil {
		o.WorkItems = append([]int(nil), o.WorkItems...)
	}
	return o
}

// SetKRStatus updates the status of one key result in place.
func (o *Objective) SetKRStatus(krID string, status KRStatus) error {
	for i := range o.KRs {
		if o.KRs[i].ID == krID {
			o.KRs[i].Status = status
			return nil
		}
	}
	return fmt.Errorf("key result %s not found on objective %s", krID, o.ID)
}

type KeyResult struct {
	ID      string   `json:"id"`
	Content string   `json:"Content"`
	Status  KRStatus `json:"Status" enum:"NotStarted,OnTrack,AtRisk,Completed,Incomplete,Canceled"`
	Comment string   `json:"Comment,omitempty"`
}

type KRStatus string

const (
	KRNotStarted KRStatus = "NotStarted"
	KROnTrack    KRStatus = "OnTrack"
	KRAtRisk     KRStatus = "AtRisk"
	KRCompleted  KRStatus = "Completed"
	KRIncomplete KRStatus = "Incomplete"
	KRCanceled   KRStatus = "Canceled"
)

var krStatusLabels = map[KRStatus]string{
	KRNotStarted: "Not Started",
	KROnTrack:    "On Track",
	KRAtRisk:     "At Risk",
	KRCompleted:  "Completed",
	KRIncomplete: "Incomplete",
	KRCanceled:   "Canceled",
}

// KRStatuses lists statuses in display order.
func KRStatuses() []KRStatus {
	return []KRStatus{KRNotStarted, KROnTrack, KRAtRisk, KRCompleted, KRIncomplete, KRCanceled}
}

// ParseKRStatus accepts either the stored value or its display label.
func ParseKRStatus(v string) (KRStatus, error) {
	for status, label := range krStatusLabels {
		if v == string(status) || v == label {
			return status, nil
		}
	}
	return "", fmt.Errorf("invalid key result status %q", v)
}

// Label is the human readable form of the status.
func (s KRStatus) Label() string {
	if l, ok := krStatusLabels[s]; ok {
		return l
	}
	return string(s)
}

type Area struct {
	ID          string `json:"id"`
	Name        string `json:"Name"`
	Description string `json:"Description,omitempty"`
	Owner       string `json:"Owner,omitempty"`
}

func (a Area) DocumentID() string { return a.ID }

func (a Area) WithID(id string) Area {
	a.ID = id
	return a
}

type TimeFrame struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Order int    `json:"order"`
}

type TimeFrameSet struct {
	ID                 string      `json:"id"`
	TimeFrames         []TimeFrame `json:"timeFrames"`
	CurrentTimeFrameID string      `json:"currentTimeFrameId"`
}

func (s TimeFrameSet) DocumentID() string { return s.ID }

func (s TimeFrameSet) WithID(id string) TimeFrameSet {
	s.ID = id
	return s
}

// NewTimeFrameSet builds a set holding a single time frame that is also current.
func NewTimeFrameSet(name string) TimeFrameSet {
	id := uuid.NewString()
	return TimeFrameSet{
		TimeFrames:         []TimeFrame{{ID: id, Name: name, Order: 0}},
		CurrentTimeFrameID: id,
	}
}

// Validate checks that the current pointer references a member time frame.
func (s TimeFrameSet) Validate() error {
	if len(s.TimeFrames) == 0 {
		return fmt.Errorf("%w: no time frames", ErrInvalidTimeFrameSet)
	}
	seen := make(map[string]struct{}, len(s.TimeFrames))
	for _, tf := range s.TimeFrames {
		if tf.ID == "" {
			return fmt.Errorf("%w: time frame %q has empty id", ErrInvalidTimeFrameSet, tf.Name)
		}
		if _, dup := seen[tf.ID]; dup {
			return fmt.Errorf("%w: duplicate time frame id %s", ErrInvalidTimeFrameSet, tf.ID)
		}
		seen[tf.ID] = struct{}{}
	}
	if _, ok := seen[s.CurrentTimeFrameID]; !ok {
		return fmt.Errorf("%w: current time frame %q not in set", ErrInvalidTimeFrameSet, s.CurrentTimeFrameID)
	}
	return nil
}

// Current returns the active time frame.
func (s TimeFrameSet) Current() (TimeFrame, bool) {
	return s.Find(s.CurrentTimeFrameID)
}

func (s TimeFrameSet) Find(id string) (TimeFrame, bool) {
	for _, tf := range s.TimeFrames {
		if tf.ID == id {
			return tf, true
		}
	}
	return TimeFrame{}, false
}

// FindByName matches a time frame by id first, then by name.
func (s TimeFrameSet) FindByName(ref string) (TimeFrame, bool) {
	if tf, ok := s.Find(ref); ok {
		return tf, true
	}
	for _, tf := range s.TimeFrames {
		if tf.Name == ref {
			return tf, true
		}
	}
	return TimeFrame{}, false
}

// AddTimeFrame appends a new time frame ordered after the existing ones.
func (s TimeFrameSet) AddTimeFrame(name string) (TimeFrameSet, TimeFrame) {
	order := -1
	for _, tf := range s.TimeFrames {
		if tf.Order > order {
			order = tf.Order
		}
	}
	tf := TimeFrame{ID: uuid.NewString(), Name: name, Order: order + 1}
	s.TimeFrames = append(append([]TimeFrame(nil), s.TimeFrames...), tf)
	return s, tf
}

type WorkItem struct {
	ID           int    `json:"id"`
	Title        string `json:"title"`
	State        string `json:"state,omitempty"`
	WorkItemType string `json:"workItemType,omitempty"`
	AssignedTo   string `json:"assignedTo,omitempty"`
	URL          string `json:"url,omitempty"`
}

func (w WorkItem) DocumentID() string { return fmt.Sprintf("%d", w.ID) }

// WithID is a no-op: work item identity is owned by the tracker.
func (w WorkItem) WithID(string) WorkItem { return w }

// NextObjectiveOrder leaves a gap of ten after the highest existing order.
func NextObjectiveOrder(existing []Objective) int {
	highest := 0
	for _, o := range existing {
		if o.Order > highest {
			highest = o.Order
		}
	}
	return highest + 10
}
