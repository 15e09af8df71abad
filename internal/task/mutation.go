package task

// Patch holds the fields of a partial update. Nil fields are left unchanged.
type Patch struct {
	Title     *string
	Completed *bool
	Order     *int
	Date      *string
	Hour      *Hour
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Completed == nil && p.Order == nil && p.Date == nil && p.Hour == nil
}

// Apply returns t with the patch applied. The ID never changes.
func (p Patch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.Order != nil {
		t.Order = *p.Order
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.Hour != nil {
		t.Hour = *p.Hour
	}
	return t
}

// Reflected reports whether t already carries every field of the patch.
func (p Patch) Reflected(t Task) bool {
	return p.Apply(t) == t
}

// OrderChange is the new placement of one task after a reorder.
type OrderChange struct {
	TaskID string
	Order  int
	Date   string
	Hour   Hour
}

// Patch converts the change into a partial update.
func (c OrderChange) Patch() Patch {
	order, date, hour := c.Order, c.Date, c.Hour
	return Patch{Order: &order, Date: &date, Hour: &hour}
}

// Apply places t according to the change.
func (c OrderChange) Apply(t Task) Task {
	t.Order = c.Order
	t.Date = c.Date
	t.Hour = c.Hour
	return t
}

// MutationKind identifies the operation of a Mutation.
type MutationKind int

const (
	MutationCreate MutationKind = iota
	MutationUpdate
	MutationDelete
	MutationReorder
)

func (k MutationKind) String() string {
	switch k {
	case MutationCreate:
		return "create"
	case MutationUpdate:
		return "update"
	case MutationDelete:
		return "delete"
	case MutationReorder:
		return "reorder"
	default:
		return "unknown"
	}
}

// Mutation is a change to a user's task set.
type Mutation struct {
	Kind    MutationKind
	TaskID  string        // create, update, delete
	Task    Task          // create
	Patch   Patch         // update
	Changes []OrderChange // reorder
}

// CreateMutation adds t.
func CreateMutation(t Task) Mutation {
	return Mutation{Kind: MutationCreate, TaskID: t.ID, Task: t}
}

// UpdateMutation patches the task with the given ID.
func UpdateMutation(id string, p Patch) Mutation {
	return Mutation{Kind: MutationUpdate, TaskID: id, Patch: p}
}

// DeleteMutation removes the task with the given ID.
func DeleteMutation(id string) Mutation {
	return Mutation{Kind: MutationDelete, TaskID: id}
}

// ReorderMutation places several tasks at once.
func ReorderMutation(changes []OrderChange) Mutation {
	return Mutation{Kind: MutationReorder, Changes: changes}
}

// Apply applies m to a task set keyed by ID, in place.
// Updates and reorders of unknown tasks are ignored.
func (m Mutation) Apply(set map[string]Task) {
	switch m.Kind {
	case MutationCreate:
		set[m.Task.ID] = m.Task
	case MutationUpdate:
		if t, ok := set[m.TaskID]; ok {
			set[m.TaskID] = m.Patch.Apply(t)
		}
	case MutationDelete:
		delete(set, m.TaskID)
	case MutationReorder:
		for _, c := range m.Changes {
			if t, ok := set[c.TaskID]; ok {
				set[c.TaskID] = c.Apply(t)
			}
		}
	}
}

// Reflected reports whether a task set already shows the effect of m.
func (m Mutation) Reflected(set map[string]Task) bool {
	switch m.Kind {
	case MutationCreate:
		t, ok := set[m.Task.ID]
		return ok && t == m.Task
	case MutationUpdate:
		t, ok := set[m.TaskID]
		return ok && m.Patch.Reflected(t)
	case MutationDelete:
		_, ok := set[m.TaskID]
		return !ok
	case MutationReorder:
		for _, c := range m.Changes {
			t, ok := set[c.TaskID]
			if !ok || c.Apply(t) != t {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// IDs returns the IDs of the tasks touched by m.
func (m Mutation) IDs() []string {
	if m.Kind != MutationReorder {
		return []string{m.TaskID}
	}
	ids := make([]string, len(m.Changes))
	for i, c := range m.Changes {
		ids[i] = c.TaskID
	}
	return ids
}
