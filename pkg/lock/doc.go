// Package lock provides single-flight guards for relay job ids.
//
// Use [NewLocal] for a single relay process and [NewRedis] when several
// instances share a Redis deployment:
//
//	h, ok, err := locker.TryLock(ctx, lock.Key(jobID))
//	if err != nil {
//		return err
//	}
//	if !ok {
//		return core.ErrJobLocked
//	}
//	defer h.Unlock(context.WithoutCancel(ctx))
package lock
