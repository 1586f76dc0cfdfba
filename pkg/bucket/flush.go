package bucket

import "context"

// Notifier is the outbound collaborator a bucket calls to tell the
// router about newly-seen principals. It models the host's
// inter-canister call; a failure here never fails the write that
// triggered it; it only delays the flush.
type Notifier interface {
	NotifyNewUsers(ctx context.Context, users []Principal) error
}

// NopNotifier discards all notifications. Useful for tests and for
// buckets with no router configured.
type NopNotifier struct{}

func (NopNotifier) NotifyNewUsers(ctx context.Context, users []Principal) error { return nil }

const (
	flushThresholdCount = 15
	flushThresholdMS    = 2000
	minFlushGapMS       = 1000
	maxFlushRetries     = 3
)

// registrationState tracks which principals the router has been told
// about and which are still pending, plus the millisecond timestamps
// used to pace flush attempts.
type registrationState struct {
	seen        map[string]struct{}
	toFlush     map[string]Principal
	lastFlushMS uint64
	lastTryMS   uint64
}

func newRegistrationState() registrationState {
	return registrationState{
		seen:    make(map[string]struct{}),
		toFlush: make(map[string]Principal),
	}
}

// pending returns every principal still awaiting a flush, in no
// particular order.
func (s *registrationState) pending() []Principal {
	out := make([]Principal, 0, len(s.toFlush))
	for _, p := range s.toFlush {
		out = append(out, p)
	}
	return out
}

func (s *registrationState) observe(principals []Principal) {
	for _, p := range principals {
		key := string(p.Bytes())
		if _, ok := s.seen[key]; ok {
			continue
		}
		s.toFlush[key] = p
	}
}

// due reports whether a flush should be attempted at nowMS.
func (s *registrationState) due(nowMS uint64) bool {
	if len(s.toFlush) == 0 {
		return false
	}
	if nowMS-s.lastTryMS < minFlushGapMS {
		return false
	}
	return len(s.toFlush) >= flushThresholdCount || nowMS-s.lastFlushMS >= flushThresholdMS
}

// flush attempts to notify the router of every pending principal, up
// to maxFlushRetries times. On success the principals are marked seen
// and removed from the pending set; on failure they remain pending for
// the next attempt.
func (s *registrationState) flush(ctx context.Context, nowMS uint64, notifier Notifier) {
	s.lastTryMS = nowMS
	if len(s.toFlush) == 0 {
		return
	}
	pending := make([]Principal, 0, len(s.toFlush))
	for _, p := range s.toFlush {
		pending = append(pending, p)
	}

	var err error
	for attempt := 0; attempt < maxFlushRetries; attempt++ {
		if err = notifier.NotifyNewUsers(ctx, pending); err == nil {
			break
		}
	}
	if err != nil {
		return
	}

	for _, p := range pending {
		key := string(p.Bytes())
		s.seen[key] = struct{}{}
		delete(s.toFlush, key)
	}
	s.lastFlushMS = nowMS
}
