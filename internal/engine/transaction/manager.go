package transaction

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/editflow/editflow/internal/engine/diffsource"
	"github.com/editflow/editflow/internal/engine/document"
	"github.com/editflow/editflow/internal/engine/ledger"
	"github.com/editflow/editflow/internal/event"
	"github.com/editflow/editflow/internal/logging"
)

// resolvedCounts accumulates session-scoped resolution totals for one uri.
// Resolved diff records are deleted from the source, so these counts cannot
// be derived from live state.
type resolvedCounts struct {
	accepted     int
	rejected     int
	lastActivity time.Time
}

// Options configures a Manager.
type Options struct {
	// SettleDelay is the pause after a recompute before completion events
	// fire. Zero disables it.
	SettleDelay time.Duration
}

// Manager orchestrates edit transactions across diff, file, and workspace
// scope. It is the sole issuer of programmatic document writes.
//
// Every public operation except CreateEditTransaction catches internal
// failures, logs them, and reports false or an empty collection; nothing
// propagates past the manager boundary.
type Manager struct {
	store  *document.Store
	source *diffsource.Source
	ledger *ledger.Ledger
	bus    *event.Bus
	log    *logging.Logger

	settleDelay time.Duration

	mu           sync.Mutex
	transactions map[string]*Transaction
	order        []string
	resolved     map[string]resolvedCounts

	overlay       *Overlay
	cancelUpdates func()
}

// NewManager creates a transaction manager over the given collaborators.
func NewManager(store *document.Store, source *diffsource.Source, ledg *ledger.Ledger, bus *event.Bus, log *logging.Logger, opts Options) *Manager {
	if log == nil {
		log = logging.Null
	}
	m := &Manager{
		store:        store,
		source:       source,
		ledger:       ledg,
		bus:          bus,
		log:          log.WithComponent("transaction"),
		settleDelay:  opts.SettleDelay,
		transactions: make(map[string]*Transaction),
		resolved:     make(map[string]resolvedCounts),
		overlay:      NewOverlay(),
	}
	m.cancelUpdates = source.OnDidUpdateArea(m.onAreaUpdate)
	return m
}

// Close cancels the manager's diff source subscription.
func (m *Manager) Close() {
	if m.cancelUpdates != nil {
		m.cancelUpdates()
	}
}

// onAreaUpdate prunes overlay entries whose diff ids a recompute destroyed.
func (m *Manager) onAreaUpdate(u diffsource.Update) {
	if u.Reason != diffsource.ReasonRecompute {
		return
	}

	present := make(map[diffsource.DiffID]struct{})
	for _, area := range m.source.AreasForURI(u.URI) {
		for id := range area.Diffs {
			present[id] = struct{}{}
		}
	}

	if removed := m.overlay.PruneMissing(u.URI, present); removed > 0 {
		m.log.Debug("pruned %d stale overlay entries for %s", removed, u.URI)
	}
}

// CreateEditTransaction opens a transaction for uri against the given
// baseline content and computes its initial diffs. If no document model is
// open for uri, one is created holding the baseline. This is the one
// operation that surfaces internal errors to the caller; it has no prior
// state to protect.
func (m *Manager) CreateEditTransaction(uri, originalContent string, opts CreateOptions) (string, error) {
	if uri == "" {
		return "", fmt.Errorf("create transaction: empty uri")
	}

	src := opts.Source
	if src == "" {
		src = SourceAgent
	}

	model, ok := m.store.Get(uri)
	if !ok {
		model = m.store.Open(uri, originalContent)
	}

	area := m.source.ComputeDiffs(uri, originalContent, model.Value(), diffsource.ComputeOptions{
		Streaming: opts.Streaming,
	})

	state := diffsource.StatePending
	if opts.Streaming {
		state = diffsource.StateStreaming
	}

	now := time.Now()
	tx := &Transaction{
		ID:        uuid.NewString(),
		URI:       uri,
		State:     state,
		AreaID:    area.ID,
		CreatedAt: now,
		Source:    src,
	}

	m.mu.Lock()
	m.transactions[tx.ID] = tx
	m.order = append(m.order, tx.ID)
	rc := m.resolved[uri]
	rc.lastActivity = now
	m.resolved[uri] = rc
	m.mu.Unlock()

	m.bus.Publish(event.TopicTransactionCreated, TransactionEvent{
		TransactionID: tx.ID,
		URI:           uri,
		State:         state,
		Source:        src,
	})
	m.notifySummaries(uri)

	return tx.ID, nil
}

// AcceptDiff accepts a single diff, advancing its area's baseline.
// Returns true on success or if the diff is already accepted.
func (m *Manager) AcceptDiff(id diffsource.DiffID) bool {
	ok, err := m.acceptDiff(id, true)
	if err != nil {
		m.logOpErr("acceptDiff", err)
		return false
	}
	return ok
}

// RejectDiff rejects a single diff, reverting only its region in the live
// document. Returns true on success or if the diff is already rejected.
func (m *Manager) RejectDiff(id diffsource.DiffID) bool {
	ok, err := m.rejectDiff(id, true)
	if err != nil {
		m.logOpErr("rejectDiff", err)
		return false
	}
	return ok
}

func (m *Manager) acceptDiff(id diffsource.DiffID, push bool) (bool, error) {
	d, area, ok := m.source.FindDiff(id)
	if !ok {
		if st, known := m.overlay.Get(id); known && st == diffsource.StateAccepted {
			return true, nil
		}
		return false, fmt.Errorf("accept diff %d: %w", id, diffsource.ErrDiffNotFound)
	}
	if m.overlay.Resolve(d) == diffsource.StateAccepted {
		return true, nil
	}

	model, ok := m.store.Get(d.URI)
	if !ok {
		return false, fmt.Errorf("accept diff %d: %s: %w", id, d.URI, document.ErrModelNotFound)
	}

	uri := d.URI
	snap := m.captureSnapshot(uri, model)

	// The live document already displays the proposed text, so only the
	// baseline advances; sibling pending diffs stay valid without being
	// torn down.
	if err := m.source.MergeAcceptedDiffIntoBaseline(area.ID, d.ID); err != nil {
		return false, fmt.Errorf("accept diff %d: %w", id, err)
	}

	// State update precedes deletion so a listener reading state during
	// the delete sees the terminal value.
	m.overlay.Set(d.ID, uri, diffsource.StateAccepted)
	m.bumpResolved(uri, diffsource.StateAccepted)
	if err := m.source.DeleteDiff(area.ID, d.ID); err != nil {
		return false, fmt.Errorf("accept diff %d: %w", id, err)
	}

	m.recomputeAndSettle(uri)
	m.completeTransactions(uri, diffsource.StateAccepted)

	if push {
		m.ledger.Push(m.diffEntry(snap, d.ID, "Accept diff", "acceptDiff", true))
	}

	m.bus.Publish(event.TopicDiffAccepted, DiffEvent{DiffID: d.ID, AreaID: area.ID, URI: uri})
	m.notifySummaries(uri)
	return true, nil
}

func (m *Manager) rejectDiff(id diffsource.DiffID, push bool) (bool, error) {
	d, area, ok := m.source.FindDiff(id)
	if !ok {
		if st, known := m.overlay.Get(id); known && st == diffsource.StateRejected {
			return true, nil
		}
		return false, fmt.Errorf("reject diff %d: %w", id, diffsource.ErrDiffNotFound)
	}
	if m.overlay.Resolve(d) == diffsource.StateRejected {
		return true, nil
	}

	model, ok := m.store.Get(d.URI)
	if !ok {
		return false, fmt.Errorf("reject diff %d: %s: %w", id, d.URI, document.ErrModelNotFound)
	}

	uri := d.URI
	snap := m.captureSnapshot(uri, model)

	// An in-flight producer writing this region races the revert; stop it
	// first.
	if area.Streaming {
		if err := m.source.AbortStreaming(area.ID); err != nil {
			return false, fmt.Errorf("reject diff %d: %w", id, err)
		}
	}

	m.store.BeginSystemWrite()
	res, err := rejectWrite(model, area, d)
	m.store.EndSystemWrite()
	if err != nil {
		return false, fmt.Errorf("reject diff %d: %w", id, err)
	}

	// Realign sibling ranges before the rejected diff disappears, or
	// later diffs keep stale coordinates.
	m.source.RealignAreaRanges(uri, rejectChangeRange(d), res.LineDelta)

	m.overlay.Set(d.ID, uri, diffsource.StateRejected)
	m.bumpResolved(uri, diffsource.StateRejected)
	if err := m.source.DeleteDiff(area.ID, d.ID); err != nil {
		return false, fmt.Errorf("reject diff %d: %w", id, err)
	}

	m.recomputeAndSettle(uri)
	m.completeTransactions(uri, diffsource.StateRejected)

	if push {
		m.ledger.Push(m.diffEntry(snap, d.ID, "Reject diff", "rejectDiff", false))
	}

	m.bus.Publish(event.TopicDiffRejected, DiffEvent{DiffID: d.ID, AreaID: area.ID, URI: uri})
	m.notifySummaries(uri)
	return true, nil
}

// rejectChangeRange returns the position the reject write changes the
// document at, for realignment. Reverting a deletion inserts at the end of
// the line above the anchor, so the change position moves up one line.
func rejectChangeRange(d *diffsource.Diff) diffsource.LineRange {
	if d.IsDeletion() && d.ModifiedRange.Start > 1 {
		return diffsource.EmptyLineRange(d.ModifiedRange.Start - 1)
	}
	return d.ModifiedRange
}

// diffEntry builds the reversible ledger entry for a single-diff
// resolution. Undo restores the pre-mutation snapshot wholesale; redo
// re-resolves the diff by id, which exists again after undo restored it.
func (m *Manager) diffEntry(snap *uriSnapshot, id diffsource.DiffID, label, code string, accept bool) ledger.Entry {
	return ledger.Entry{
		Resources: []string{snap.uri},
		Label:     label,
		Code:      code,
		Undo: func() error {
			return m.restoreSnapshot(snap)
		},
		Redo: func() error {
			var err error
			if accept {
				_, err = m.acceptDiff(id, false)
			} else {
				_, err = m.rejectDiff(id, false)
			}
			return err
		},
	}
}

// AcceptFile accepts every pending diff in uri by rebaselining all of its
// diff areas onto the file's current content. Idempotent: with zero pending
// diffs it mutates nothing and emits nothing.
func (m *Manager) AcceptFile(uri string) bool {
	resolved, err := m.acceptFile(uri, true)
	if err != nil {
		m.logOpErr("acceptFile", err)
		return false
	}
	if resolved > 0 {
		m.bus.Publish(event.TopicFileAccepted, FileEvent{URI: uri, ResolvedCount: resolved})
		m.notifySummaries(uri)
	}
	return true
}

// RejectFile rejects every pending diff in uri by writing the stored
// full-file baseline back over the entire document. This is the one
// operation allowed a full-file overwrite: every pending change in the file
// is being discarded.
func (m *Manager) RejectFile(uri string) bool {
	resolved, err := m.rejectFile(uri, true)
	if err != nil {
		m.logOpErr("rejectFile", err)
		return false
	}
	if resolved > 0 {
		m.bus.Publish(event.TopicFileRejected, FileEvent{URI: uri, ResolvedCount: resolved})
		m.notifySummaries(uri)
	}
	return true
}

func (m *Manager) acceptFile(uri string, push bool) (int, error) {
	areas := m.source.AreasForURI(uri)
	if !m.hasUnresolved(areas) {
		return 0, nil
	}

	model, ok := m.store.Get(uri)
	if !ok {
		return 0, fmt.Errorf("accept file %s: %w", uri, document.ErrModelNotFound)
	}
	current := model.Value()

	resolved := 0
	for _, area := range areas {
		for _, d := range area.DiffsSorted() {
			if m.overlay.Resolve(d).IsTerminal() {
				continue
			}
			m.overlay.Set(d.ID, uri, diffsource.StateAccepted)
			m.bumpResolved(uri, diffsource.StateAccepted)
			if err := m.source.DeleteDiff(area.ID, d.ID); err != nil {
				return resolved, fmt.Errorf("accept file %s: %w", uri, err)
			}
			resolved++
		}
		if err := m.source.UpdateAreaSnapshot(area.ID, current); err != nil {
			return resolved, fmt.Errorf("accept file %s: %w", uri, err)
		}
	}

	m.recomputeAndSettle(uri)
	m.completeTransactions(uri, diffsource.StateAccepted)

	if push {
		m.ledger.Push(m.unimplementedEntry(uri, "Accept file", "acceptFile"))
	}
	return resolved, nil
}

func (m *Manager) rejectFile(uri string, push bool) (int, error) {
	areas := m.source.AreasForURI(uri)
	if !m.hasUnresolved(areas) {
		return 0, nil
	}

	model, ok := m.store.Get(uri)
	if !ok {
		return 0, fmt.Errorf("reject file %s: %w", uri, document.ErrModelNotFound)
	}

	// The earliest area carries the pre-edit full-file baseline.
	baseline := areas[0].OriginalSnapshot

	for _, area := range areas {
		if area.Streaming {
			if err := m.source.AbortStreaming(area.ID); err != nil {
				return 0, fmt.Errorf("reject file %s: %w", uri, err)
			}
		}
	}

	m.store.BeginSystemWrite()
	_, err := model.Replace(model.FullRange(), baseline)
	m.store.EndSystemWrite()
	if err != nil {
		return 0, fmt.Errorf("reject file %s: %w", uri, err)
	}

	resolved := 0
	for _, area := range areas {
		for _, d := range area.DiffsSorted() {
			if m.overlay.Resolve(d).IsTerminal() {
				continue
			}
			m.overlay.Set(d.ID, uri, diffsource.StateRejected)
			m.bumpResolved(uri, diffsource.StateRejected)
			if err := m.source.DeleteDiff(area.ID, d.ID); err != nil {
				return resolved, fmt.Errorf("reject file %s: %w", uri, err)
			}
			resolved++
		}
		if err := m.source.UpdateAreaSnapshot(area.ID, baseline); err != nil {
			return resolved, fmt.Errorf("reject file %s: %w", uri, err)
		}
	}

	m.recomputeAndSettle(uri)
	m.completeTransactions(uri, diffsource.StateRejected)

	if push {
		m.ledger.Push(m.unimplementedEntry(uri, "Reject file", "rejectFile"))
	}
	return resolved, nil
}

// AcceptAll accepts every pending diff in the workspace under a single
// workspace-scoped reversible entry fanning out per resource.
func (m *Manager) AcceptAll() bool {
	return m.resolveAll(true)
}

// RejectAll rejects every pending diff in the workspace under a single
// workspace-scoped reversible entry fanning out per resource.
func (m *Manager) RejectAll() bool {
	return m.resolveAll(false)
}

func (m *Manager) resolveAll(accept bool) bool {
	var uris []string
	for _, uri := range m.source.TrackedURIs() {
		if m.hasUnresolved(m.source.AreasForURI(uri)) {
			uris = append(uris, uri)
		}
	}
	if len(uris) == 0 {
		return true
	}

	op, label, topic := "rejectFile", "Reject all", event.TopicAllRejected
	if accept {
		op, label, topic = "acceptFile", "Accept all", event.TopicAllAccepted
	}

	total := 0
	parts := make([]ledger.Entry, 0, len(uris))
	for _, uri := range uris {
		var resolved int
		var err error
		if accept {
			resolved, err = m.acceptFile(uri, false)
		} else {
			resolved, err = m.rejectFile(uri, false)
		}
		if err != nil {
			m.logOpErr(op, err)
			return false
		}
		total += resolved
		parts = append(parts, m.unimplementedEntry(uri, label, op))
		m.notifySummaries(uri)
	}

	m.ledger.PushWorkspace(label, op+"All", parts)
	m.bus.Publish(topic, WorkspaceEvent{URIs: uris, ResolvedCount: total})
	return true
}

// unimplementedEntry records an entry whose undo/redo are acknowledged
// gaps: file- and workspace-scope reversal needs per-file baseline history.
// They warn and no-op rather than restore incorrectly.
func (m *Manager) unimplementedEntry(uri, label, code string) ledger.Entry {
	warn := func(direction string) func() error {
		return func() error {
			m.log.Warn("%s for %s is not implemented at file scope; state unchanged", direction, code)
			return nil
		}
	}
	return ledger.Entry{
		Resources: []string{uri},
		Label:     label,
		Code:      code,
		Undo:      warn("undo"),
		Redo:      warn("redo"),
	}
}

// hasUnresolved reports whether any diff in areas is pending or streaming
// under overlay resolution.
func (m *Manager) hasUnresolved(areas []*diffsource.Area) bool {
	for _, area := range areas {
		for _, d := range area.Diffs {
			if !m.overlay.Resolve(d).IsTerminal() {
				return true
			}
		}
	}
	return false
}

// recomputeAndSettle re-runs diff computation for uri, then pauses for the
// configured settle interval so dependent view state regenerates before
// completion events fire. The pause stands in for an explicit completion
// signal the diff source does not yet offer.
func (m *Manager) recomputeAndSettle(uri string) {
	if err := m.source.RecomputeDiffsForFile(uri); err != nil {
		m.log.Warn("recompute for %s failed: %v", uri, err)
	}
	if m.settleDelay > 0 {
		time.Sleep(m.settleDelay)
	}
}

// completeTransactions marks every open transaction on uri terminal once no
// unresolved diffs remain.
func (m *Manager) completeTransactions(uri string, state diffsource.DiffState) {
	if m.hasUnresolved(m.source.AreasForURI(uri)) {
		return
	}

	now := time.Now()
	var completed []*Transaction

	m.mu.Lock()
	for _, tx := range m.transactions {
		if tx.URI != uri || tx.IsTerminal() {
			continue
		}
		tx.State = state
		tx.CompletedAt = now
		completed = append(completed, tx)
	}
	m.mu.Unlock()

	for _, tx := range completed {
		m.bus.Publish(event.TopicTransactionCompleted, TransactionEvent{
			TransactionID: tx.ID,
			URI:           tx.URI,
			State:         tx.State,
			Source:        tx.Source,
		})
	}
}

func (m *Manager) bumpResolved(uri string, state diffsource.DiffState) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rc := m.resolved[uri]
	switch state {
	case diffsource.StateAccepted:
		rc.accepted++
	case diffsource.StateRejected:
		rc.rejected++
	}
	rc.lastActivity = time.Now()
	m.resolved[uri] = rc
}

func (m *Manager) notifySummaries(uri string) {
	m.bus.Publish(event.TopicEditedFilesChanged, EditedFilesEvent{URI: uri})
}

func (m *Manager) logOpErr(op string, err error) {
	switch {
	case isNotFound(err):
		m.log.Warn("%s: %v", op, err)
	case isInvalidRange(err):
		m.log.Warn("%s: %v", op, err)
	default:
		m.log.Error("%s: %v", op, err)
	}
}

// Queries

// GetTransaction returns a copy of the transaction with the given id.
func (m *Manager) GetTransaction(id string) (Transaction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx, ok := m.transactions[id]
	if !ok {
		return Transaction{}, false
	}
	return *tx, true
}

// Transactions returns copies of all transactions in creation order.
func (m *Manager) Transactions() []Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Transaction, 0, len(m.order))
	for _, id := range m.order {
		if tx, ok := m.transactions[id]; ok {
			out = append(out, *tx)
		}
	}
	return out
}

// GetDiffsForFile returns overlay-resolved copies of the diffs tracked for
// uri, ordered by position.
func (m *Manager) GetDiffsForFile(uri string) []*diffsource.Diff {
	var out []*diffsource.Diff
	for _, area := range m.source.AreasForURI(uri) {
		for _, d := range area.DiffsSorted() {
			c := d.Clone()
			c.State = m.overlay.Resolve(d)
			out = append(out, c)
		}
	}
	return out
}

// GetAllDiffs returns overlay-resolved copies of every tracked diff.
func (m *Manager) GetAllDiffs() []*diffsource.Diff {
	var out []*diffsource.Diff
	for _, uri := range m.source.TrackedURIs() {
		out = append(out, m.GetDiffsForFile(uri)...)
	}
	return out
}

// GetDiffAreasForFile returns overlay-resolved copies of the diff areas
// tracking uri.
func (m *Manager) GetDiffAreasForFile(uri string) []*diffsource.Area {
	var out []*diffsource.Area
	for _, area := range m.source.AreasForURI(uri) {
		c := area.Clone()
		for id, d := range c.Diffs {
			d.State = m.overlay.Resolve(area.Diffs[id])
		}
		out = append(out, c)
	}
	return out
}

// GetAllDiffAreas returns overlay-resolved copies of every diff area.
func (m *Manager) GetAllDiffAreas() []*diffsource.Area {
	var out []*diffsource.Area
	for _, uri := range m.source.TrackedURIs() {
		out = append(out, m.GetDiffAreasForFile(uri)...)
	}
	return out
}

// GetEditedFile aggregates review state for uri. The second return is
// false if the uri has never had a diff tracked.
func (m *Manager) GetEditedFile(uri string) (FileSummary, bool) {
	areas := m.source.AreasForURI(uri)

	m.mu.Lock()
	rc, everResolved := m.resolved[uri]
	m.mu.Unlock()

	if len(areas) == 0 && !everResolved {
		return FileSummary{}, false
	}

	s := FileSummary{
		URI:           uri,
		AcceptedCount: rc.accepted,
		RejectedCount: rc.rejected,
		LastModified:  rc.lastActivity,
	}

	for _, area := range areas {
		if area.CreatedAt.After(s.LastModified) {
			s.LastModified = area.CreatedAt
		}
		for _, d := range area.Diffs {
			switch m.overlay.Resolve(d) {
			case diffsource.StatePending:
				s.PendingCount++
			case diffsource.StateStreaming:
				s.StreamingCount++
			case diffsource.StateAccepted:
				s.AcceptedCount++
			case diffsource.StateRejected:
				s.RejectedCount++
			}
			s.AddedLines += d.ModifiedRange.Len()
			s.RemovedLines += d.OriginalRange.Len()
		}
	}

	s.HasPendingDiffs = s.PendingCount > 0
	s.HasStreamingDiffs = s.StreamingCount > 0
	return s, true
}

// GetEditedFiles returns summaries for every uri with at least one diff
// ever tracked, newest activity first.
func (m *Manager) GetEditedFiles() []FileSummary {
	seen := make(map[string]struct{})
	for _, uri := range m.source.TrackedURIs() {
		seen[uri] = struct{}{}
	}
	m.mu.Lock()
	for uri := range m.resolved {
		seen[uri] = struct{}{}
	}
	m.mu.Unlock()

	out := make([]FileSummary, 0, len(seen))
	for uri := range seen {
		if s, ok := m.GetEditedFile(uri); ok {
			out = append(out, s)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastModified.Equal(out[j].LastModified) {
			return out[i].LastModified.After(out[j].LastModified)
		}
		return out[i].URI < out[j].URI
	})
	return out
}

// Reset discards all transaction, overlay, and summary state.
// Session-scoped lifecycle hook for tests and engine reset.
func (m *Manager) Reset() {
	m.mu.Lock()
	m.transactions = make(map[string]*Transaction)
	m.order = nil
	m.resolved = make(map[string]resolvedCounts)
	m.mu.Unlock()

	m.overlay.Reset()
}
