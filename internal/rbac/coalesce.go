package rbac

import (
	"context"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"
)

// CoalescingResolver merges concurrent identical grant lookups into one call
// to the wrapped Resolver.
type CoalescingResolver struct {
	next    Resolver
	group   singleflight.Group
	timeout time.Duration
}

// NewCoalescingResolver wraps next. timeout bounds the shared lookup so one
// caller's cancellation does not fail the others.
func NewCoalescingResolver(next Resolver, timeout time.Duration) *CoalescingResolver {
	if timeout <= 0 {
		timeout = DefaultLookupTimeout
	}
	return &CoalescingResolver{next: next, timeout: timeout}
}

// FindGrant implements Resolver.
func (c *CoalescingResolver) FindGrant(ctx context.Context, roleID int64, resource string) (Grant, error) {
	key := strconv.FormatInt(roleID, 10) + ":" + resource
	resultChan := c.group.DoChan(key, func() (interface{}, error) {
		sharedCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return c.next.FindGrant(sharedCtx, roleID, resource)
	})
	select {
	case <-ctx.Done():
		return Grant{}, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return Grant{}, res.Err
		}
		return res.Val.(Grant), nil
	}
}

var _ Resolver = (*CoalescingResolver)(nil)
