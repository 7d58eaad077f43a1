// Package policy 实现包裹每个操作的策略管道。
//
// 每个 Policy 提供一个前置检查 (Before) 和一个后置转换 (After)。
// Pipeline 按顺序折叠策略：第一个策略在最外层，它的 Before 最先执行、After 最后执行。
// 某个 Before 失败时，内层策略和处理函数都不会执行，但已进入的外层策略仍会执行 After。
package policy

import (
	"context"

	"remix-go/internal/auth"
)

// Call 描述一次操作调用。Principal 由认证策略填充后显式交给处理函数。
type Call struct {
	Operation  string
	Credential string
	Principal  *auth.Principal
}

// UserID 返回调用方的用户 ID，未认证时为 0。
func (c *Call) UserID() uint {
	if c == nil || c.Principal == nil {
		return 0
	}
	return c.Principal.ID
}

// Handler 是被管道包裹的处理函数。
type Handler func(ctx context.Context, call *Call) error

// Policy 是管道中的一个步骤。
type Policy interface {
	Before(ctx context.Context, call *Call) (context.Context, error)
	After(ctx context.Context, call *Call, err error) error
}

// Pipeline 是有序的策略列表，创建后不可修改。
type Pipeline struct {
	policies []Policy
}

// New 创建一个管道，policies[0] 位于最外层。
func New(policies ...Policy) *Pipeline {
	return &Pipeline{policies: append([]Policy(nil), policies...)}
}

// With 返回在当前管道内侧追加了策略的新管道。
func (p *Pipeline) With(more ...Policy) *Pipeline {
	combined := make([]Policy, 0, len(p.policies)+len(more))
	combined = append(combined, p.policies...)
	combined = append(combined, more...)
	return &Pipeline{policies: combined}
}

// Wrap 把处理函数折叠进管道。
func (p *Pipeline) Wrap(h Handler) Handler {
	wrapped := h
	for i := len(p.policies) - 1; i >= 0; i-- {
		wrapped = wrapOne(p.policies[i], wrapped)
	}
	return wrapped
}

func wrapOne(pol Policy, next Handler) Handler {
	return func(ctx context.Context, call *Call) error {
		innerCtx, err := pol.Before(ctx, call)
		if innerCtx == nil {
			innerCtx = ctx
		}
		if err == nil {
			err = next(innerCtx, call)
		}
		return pol.After(innerCtx, call, err)
	}
}

// Run 通过管道执行 fn 并返回其结果。失败时返回 T 的零值。
func Run[T any](ctx context.Context, p *Pipeline, call *Call, fn func(ctx context.Context, call *Call) (T, error)) (T, error) {
	var out T
	err := p.Wrap(func(ctx context.Context, call *Call) error {
		v, err := fn(ctx, call)
		out = v
		return err
	})(ctx, call)
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
