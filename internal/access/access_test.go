package access

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xelth-com/agrocampo/internal/apierror"
)

type fakeLinks struct {
	linked   map[uint]uint
	assigned map[uint][]uint
	calls    int
	err      error
}

func (f *fakeLinks) LinkedWorker(_ context.Context, userID uint) (uint, bool, error) {
	f.calls++
	if f.err != nil {
		return 0, false, f.err
	}
	id, ok := f.linked[userID]
	return id, ok, nil
}

func (f *fakeLinks) AssignedWorkers(_ context.Context, supervisorID uint) ([]uint, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.assigned[supervisorID], nil
}

var (
	admin      = Identity{UserID: 1, Role: RoleAdmin}
	supervisor = Identity{UserID: 2, Role: RoleSupervisor}
	operator   = Identity{UserID: 3, Role: RoleOperator}
	orphan     = Identity{UserID: 4, Role: RoleOperator}
)

func newTestGate(now time.Time) (*Gate, *fakeLinks) {
	links := &fakeLinks{
		linked:   map[uint]uint{3: 30},
		assigned: map[uint][]uint{2: {20, 21}},
	}
	gate := NewGate(NewScopeCalculator(links), EditWindow{Duration: 2 * time.Hour}).
		WithClock(func() time.Time { return now })
	return gate, links
}

func ptr(v uint) *uint { return &v }

func requireReason(t *testing.T, err error, reason string) {
	t.Helper()
	var apiErr *apierror.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierror.KindForbidden, apiErr.Kind)
	assert.Equal(t, reason, apiErr.Reason)
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole(2)
	require.NoError(t, err)
	assert.Equal(t, RoleSupervisor, r)
	assert.Equal(t, "supervisor", r.String())

	_, err = ParseRole(7)
	assert.Error(t, err)
}

func TestScopeCalculator(t *testing.T) {
	gate, links := newTestGate(time.Now())
	ctx := context.Background()

	s, err := gate.Scope(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, ScopeUnrestricted, s.Kind)
	assert.True(t, s.Allows(999))

	s, err = gate.Scope(ctx, operator)
	require.NoError(t, err)
	own, ok := s.OwnWorkerID()
	assert.True(t, ok)
	assert.Equal(t, uint(30), own)

	s, err = gate.Scope(ctx, orphan)
	require.NoError(t, err)
	assert.True(t, s.Empty())

	s, err = gate.Scope(ctx, supervisor)
	require.NoError(t, err)
	assert.Equal(t, []uint{20, 21}, s.WorkerIDs)
	assert.False(t, s.Allows(30))

	// Assignments changed between requests are picked up
	links.assigned[2] = []uint{30}
	s, err = gate.Scope(ctx, supervisor)
	require.NoError(t, err)
	assert.True(t, s.Allows(30))
	assert.False(t, s.Allows(20))
}

func TestScopeErrorsAreInternal(t *testing.T) {
	gate, links := newTestGate(time.Now())
	links.err = errors.New("db down")

	_, err := gate.Scope(context.Background(), operator)
	assert.True(t, apierror.Is(err, apierror.KindInternal))
}

func TestAssignedWorkersDeduplicates(t *testing.T) {
	s := AssignedWorkers([]uint{5, 3, 5, 1})
	assert.Equal(t, []uint{1, 3, 5}, s.WorkerIDs)
	assert.True(t, AssignedWorkers(nil).Empty())
}

func TestAuthorizeCreate(t *testing.T) {
	gate, _ := newTestGate(time.Now())
	ctx := context.Background()

	worker, err := gate.AuthorizeCreate(ctx, admin, ptr(5))
	require.NoError(t, err)
	assert.Equal(t, uint(5), worker)

	_, err = gate.AuthorizeCreate(ctx, supervisor, nil)
	assert.True(t, apierror.Is(err, apierror.KindBadRequest))

	_, err = gate.AuthorizeCreate(ctx, supervisor, ptr(99))
	requireReason(t, err, apierror.ReasonWorkerOutOfScope)

	worker, err = gate.AuthorizeCreate(ctx, supervisor, ptr(21))
	require.NoError(t, err)
	assert.Equal(t, uint(21), worker)

	// Operator payload is ignored: the event is pinned to the linked worker
	worker, err = gate.AuthorizeCreate(ctx, operator, ptr(99))
	require.NoError(t, err)
	assert.Equal(t, uint(30), worker)

	_, err = gate.AuthorizeCreate(ctx, orphan, ptr(30))
	requireReason(t, err, apierror.ReasonNoLinkedWorker)
}

func TestAuthorizeRead(t *testing.T) {
	gate, _ := newTestGate(time.Now())
	ctx := context.Background()

	assert.NoError(t, gate.AuthorizeRead(ctx, admin, Target{WorkerID: 77}))
	assert.NoError(t, gate.AuthorizeRead(ctx, operator, Target{WorkerID: 30}))
	requireReason(t, gate.AuthorizeRead(ctx, operator, Target{WorkerID: 31}), apierror.ReasonWorkerOutOfScope)
	requireReason(t, gate.AuthorizeRead(ctx, orphan, Target{WorkerID: 30}), apierror.ReasonNoLinkedWorker)
	assert.NoError(t, gate.AuthorizeRead(ctx, supervisor, Target{WorkerID: 20}))
	requireReason(t, gate.AuthorizeRead(ctx, supervisor, Target{WorkerID: 30}), apierror.ReasonWorkerOutOfScope)
}

func TestAuthorizeUpdateSupervisor(t *testing.T) {
	gate, _ := newTestGate(time.Now())
	ctx := context.Background()

	assert.NoError(t, gate.AuthorizeUpdate(ctx, supervisor, Target{WorkerID: 20}, nil))
	assert.NoError(t, gate.AuthorizeUpdate(ctx, supervisor, Target{WorkerID: 20}, ptr(21)))
	requireReason(t, gate.AuthorizeUpdate(ctx, supervisor, Target{WorkerID: 20}, ptr(30)), apierror.ReasonWorkerOutOfScope)
	requireReason(t, gate.AuthorizeUpdate(ctx, supervisor, Target{WorkerID: 30}, ptr(20)), apierror.ReasonWorkerOutOfScope)
	// Supervisors are exempt from the edit window
	assert.NoError(t, gate.AuthorizeUpdate(ctx, supervisor, Target{WorkerID: 21}, nil))
}

func TestAuthorizeUpdateOperator(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	gate, _ := newTestGate(now)
	ctx := context.Background()
	open := now.Add(time.Hour)

	assert.NoError(t, gate.AuthorizeUpdate(ctx, operator, Target{WorkerID: 30, EditDeadline: &open}, nil))
	assert.NoError(t, gate.AuthorizeUpdate(ctx, operator, Target{WorkerID: 30, EditDeadline: &open}, ptr(30)))
	requireReason(t, gate.AuthorizeUpdate(ctx, operator, Target{WorkerID: 30, EditDeadline: &open}, ptr(31)), apierror.ReasonReassignForbidden)
	requireReason(t, gate.AuthorizeUpdate(ctx, operator, Target{WorkerID: 31, EditDeadline: &open}, nil), apierror.ReasonWorkerOutOfScope)
	requireReason(t, gate.AuthorizeUpdate(ctx, operator, Target{WorkerID: 30}, nil), apierror.ReasonEditWindowMissing)
	requireReason(t, gate.AuthorizeUpdate(ctx, orphan, Target{WorkerID: 30, EditDeadline: &open}, nil), apierror.ReasonNoLinkedWorker)
}

func TestEditWindowBoundary(t *testing.T) {
	deadline := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	target := Target{WorkerID: 30, EditDeadline: &deadline}
	ctx := context.Background()

	before, _ := newTestGate(deadline.Add(-time.Second))
	assert.NoError(t, before.AuthorizeUpdate(ctx, operator, target, nil))

	at, _ := newTestGate(deadline)
	requireReason(t, at.AuthorizeUpdate(ctx, operator, target, nil), apierror.ReasonEditWindowExpired)

	after, _ := newTestGate(deadline.Add(time.Second))
	requireReason(t, after.AuthorizeUpdate(ctx, operator, target, nil), apierror.ReasonEditWindowExpired)

	// Admins ignore the window entirely
	assert.NoError(t, after.AuthorizeUpdate(ctx, admin, Target{WorkerID: 30}, nil))
}

func TestEditWindowDeadline(t *testing.T) {
	created := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, created.Add(2*time.Hour), EditWindow{}.DeadlineFor(created))
	assert.Equal(t, created.Add(30*time.Minute), EditWindow{Duration: 30 * time.Minute}.DeadlineFor(created))
}

func TestAuthorizeDelete(t *testing.T) {
	gate, _ := newTestGate(time.Now())

	assert.NoError(t, gate.AuthorizeDelete(admin))
	requireReason(t, gate.AuthorizeDelete(supervisor), apierror.ReasonDeleteRestricted)
	requireReason(t, gate.AuthorizeDelete(operator), apierror.ReasonDeleteRestricted)
}

// Every assignment configuration over a small worker universe: a supervisor
// can read or update exactly the events of its active assignments
func TestSupervisorNeverEscapesAssignments(t *testing.T) {
	ctx := context.Background()
	universe := []uint{1, 2, 3, 4}

	for mask := 0; mask < 1<<len(universe); mask++ {
		var assigned []uint
		for i, w := range universe {
			if mask&(1<<i) != 0 {
				assigned = append(assigned, w)
			}
		}
		links := &fakeLinks{assigned: map[uint][]uint{2: assigned}}
		gate := NewGate(NewScopeCalculator(links), EditWindow{})

		for _, w := range universe {
			in := mask&(1<<(int(w)-1)) != 0
			readErr := gate.AuthorizeRead(ctx, supervisor, Target{WorkerID: w})
			updErr := gate.AuthorizeUpdate(ctx, supervisor, Target{WorkerID: w}, nil)
			assert.Equal(t, in, readErr == nil, "mask=%b worker=%d", mask, w)
			assert.Equal(t, in, updErr == nil, "mask=%b worker=%d", mask, w)
		}
	}
}
