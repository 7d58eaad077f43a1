package policy

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"remix-go/internal/apperrors"
	"remix-go/internal/auth"
)

var (
	errNoCredential      = apperrors.Authentication("请先登录")
	errInvalidCredential = apperrors.Authentication("登录状态无效或已过期")
)

// Base 记录每次调用，从不拒绝。
type Base struct {
	Logger *zap.Logger
}

func (b Base) Before(ctx context.Context, call *Call) (context.Context, error) {
	b.Logger.Debug("resolve", zap.String("operation", call.Operation))
	return ctx, nil
}

func (b Base) After(ctx context.Context, call *Call, err error) error {
	if err != nil {
		b.Logger.Debug("resolve failed",
			zap.String("operation", call.Operation),
			zap.Uint("user_id", call.UserID()),
			zap.Error(err))
	}
	return err
}

// Authenticated 要求调用携带有效凭证，失败时处理函数不会执行。
type Authenticated struct {
	Verifier auth.Verifier
	Logger   *zap.Logger
}

func (a Authenticated) Before(ctx context.Context, call *Call) (context.Context, error) {
	if call.Credential == "" {
		return ctx, errNoCredential
	}
	principal, err := a.Verifier.Verify(ctx, call.Credential)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidToken) && !errors.Is(err, auth.ErrRevokedToken) {
			a.Logger.Warn("凭证校验失败", zap.String("operation", call.Operation), zap.Error(err))
		}
		return ctx, errInvalidCredential
	}
	call.Principal = principal
	return ctx, nil
}

func (a Authenticated) After(_ context.Context, _ *Call, err error) error {
	return err
}

// MaskUnknown 放在最外层：领域错误原样返回，其余错误记录后替换为不透明的 Unknown。
type MaskUnknown struct {
	Logger *zap.Logger
}

func (m MaskUnknown) Before(ctx context.Context, _ *Call) (context.Context, error) {
	return ctx, nil
}

func (m MaskUnknown) After(_ context.Context, call *Call, err error) error {
	if err == nil {
		return nil
	}
	if appErr, ok := apperrors.As(err); ok {
		return appErr
	}
	m.Logger.Error("未知错误",
		zap.String("operation", call.Operation),
		zap.Uint("user_id", call.UserID()),
		zap.Error(err))
	return apperrors.Unknown()
}

// Metrics 按操作和错误类别统计调用次数与耗时。
type Metrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

type startKey struct{}

// NewMetrics 在 reg 上注册指标。
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		calls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "remix",
			Name:      "operations_total",
			Help:      "Operations resolved, by operation and error kind.",
		}, []string{"operation", "kind"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "remix",
			Name:      "operation_duration_seconds",
			Help:      "Operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

func (m *Metrics) Before(ctx context.Context, _ *Call) (context.Context, error) {
	return context.WithValue(ctx, startKey{}, time.Now()), nil
}

func (m *Metrics) After(ctx context.Context, call *Call, err error) error {
	kind := "ok"
	if err != nil {
		kind = string(apperrors.KindOf(err))
	}
	m.calls.WithLabelValues(call.Operation, kind).Inc()
	if start, ok := ctx.Value(startKey{}).(time.Time); ok {
		m.duration.WithLabelValues(call.Operation).Observe(time.Since(start).Seconds())
	}
	return err
}

var tracer = otel.Tracer("remix-go/policy")

// Tracing 为每次调用开启一个 span，导出器由进程自行配置。
type Tracing struct{}

func (Tracing) Before(ctx context.Context, call *Call) (context.Context, error) {
	ctx, _ = tracer.Start(ctx, "resolve."+call.Operation,
		trace.WithAttributes(attribute.String("remix.operation", call.Operation)))
	return ctx, nil
}

func (Tracing) After(ctx context.Context, call *Call, err error) error {
	span := trace.SpanFromContext(ctx)
	if uid := call.UserID(); uid != 0 {
		span.SetAttributes(attribute.Int64("remix.user_id", int64(uid)))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(apperrors.KindOf(err)))
	}
	span.End()
	return err
}

// Public 返回不要求登录的管道。
func Public(logger *zap.Logger, metrics *Metrics) *Pipeline {
	return New(MaskUnknown{Logger: logger}, metrics, Tracing{}, Base{Logger: logger})
}

// Gated 返回在 Public 内侧加上认证门的管道。
func Gated(logger *zap.Logger, metrics *Metrics, verifier auth.Verifier) *Pipeline {
	return Public(logger, metrics).With(Authenticated{Verifier: verifier, Logger: logger})
}
