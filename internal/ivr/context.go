package ivr

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/shuttle-global/twilio-demo-app/internal/audit"
	"github.com/shuttle-global/twilio-demo-app/internal/shuttle"
	"github.com/shuttle-global/twilio-demo-app/pkg/logger"
)

// future is a single-shot async result. The IVR handlers kick independent
// gateway lookups off as soon as routing parameters are known and await only
// the results each state actually needs, overlapping network latency across
// unrelated fetches.
type future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func fetchAsync[T any](ctx context.Context, fn func(context.Context) (T, error)) *future[T] {
	f := &future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.val, f.err = fn(ctx)
	}()
	return f
}

// Await blocks until the fetch finishes. A nil future yields a zero value,
// mirroring a lookup that was never started.
func (f *future[T]) Await() (T, error) {
	if f == nil {
		var zero T
		return zero, nil
	}
	<-f.done
	return f.val, f.err
}

// CallContext is the per-request correlation object for one webhook turn.
// Nothing in it survives the response: cross-request state travels in the
// provider's own session or is re-derived from the gateway by id.
type CallContext struct {
	Connector string
	Auth      shuttle.Auth

	// CallerPhone is the caller id without the leading plus, when delivered.
	CallerPhone string
	// AccountKey is the customer key derived from the caller id.
	AccountKey string

	PaymentID       string
	PaymentMethodID string

	instance       *future[*shuttle.Instance]
	capabilities   *future[*shuttle.Capabilities]
	paymentMethods *future[[]shuttle.PaymentMethod]
	payment        *future[*shuttle.Payment]
	paymentMethod  *future[*shuttle.PaymentMethod]
}

func (cc *CallContext) Instance() (*shuttle.Instance, error) { return cc.instance.Await() }

func (cc *CallContext) Capabilities() (*shuttle.Capabilities, error) {
	return cc.capabilities.Await()
}

func (cc *CallContext) PaymentMethods() ([]shuttle.PaymentMethod, error) {
	return cc.paymentMethods.Await()
}

func (cc *CallContext) Payment() (*shuttle.Payment, error) { return cc.payment.Await() }

func (cc *CallContext) PaymentMethod() (*shuttle.PaymentMethod, error) {
	return cc.paymentMethod.Await()
}

// AppPath builds a webhook path under the current tenant prefix. The
// instance secret rides in the path; the provider replays it on every
// redirect, which is what keeps this app stateless.
func (cc *CallContext) AppPath(suffix string) string {
	return "/demo/" + cc.Connector + "/" + cc.Auth.InstanceID + "/" + cc.Auth.InstanceSecret + suffix
}

const ctxKeyCall = "ivr_call_context"

// accountKeyPrefix namespaces demo customers in the gateway. Substitute your
// own CRM key derivation in a real integration.
const accountKeyPrefix = "DEMO_"

// CallContextMiddleware populates the CallContext for every route under the
// tenant prefix, starts the eager gateway fetches, and records the call
// event. Payment and payment-method lookups start here too whenever their id
// is present in the route.
func (h *Handlers) CallContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cc := &CallContext{
			Connector: c.Param("connector"),
			Auth: shuttle.Auth{
				InstanceID:     c.Param("instance_id"),
				InstanceSecret: c.Param("instance_secret"),
			},
		}

		if caller := c.PostForm("Caller"); caller != "" {
			cc.CallerPhone = strings.TrimPrefix(caller, "+")
			cc.AccountKey = accountKeyPrefix + cc.CallerPhone
		}

		ctx := c.Request.Context()
		cc.instance = fetchAsync(ctx, func(ctx context.Context) (*shuttle.Instance, error) {
			return h.API.GetInstance(ctx, cc.Auth)
		})
		cc.capabilities = fetchAsync(ctx, func(ctx context.Context) (*shuttle.Capabilities, error) {
			return h.API.GetCapabilities(ctx, cc.Auth)
		})
		if cc.AccountKey != "" {
			cc.paymentMethods = fetchAsync(ctx, func(ctx context.Context) ([]shuttle.PaymentMethod, error) {
				return h.API.GetPaymentMethods(ctx, cc.Auth, cc.AccountKey)
			})
		}
		if pid := c.Param("payment_id"); pid != "" {
			cc.PaymentID = pid
			cc.payment = fetchAsync(ctx, func(ctx context.Context) (*shuttle.Payment, error) {
				return h.API.GetPayment(ctx, cc.Auth, pid)
			})
		}
		if pmid := c.Param("payment_method_id"); pmid != "" {
			cc.PaymentMethodID = pmid
			cc.paymentMethod = fetchAsync(ctx, func(ctx context.Context) (*shuttle.PaymentMethod, error) {
				return h.API.GetPaymentMethod(ctx, cc.Auth, pmid)
			})
		}

		c.Set(ctxKeyCall, cc)
		h.recordEvent(c, cc)
		c.Next()
	}
}

// recordEvent appends a call event in the background. Audit is best-effort;
// a live call never waits on it.
func (h *Handlers) recordEvent(c *gin.Context, cc *CallContext) {
	ev := audit.Event{
		RequestID:  c.Writer.Header().Get("X-Request-Id"),
		Connector:  cc.Connector,
		InstanceID: cc.Auth.InstanceID,
		State:      stateFromRoute(c.FullPath()),
		Digits:     c.PostForm("Digits"),
		Caller:     c.PostForm("Caller"),
		PaymentID:  cc.PaymentID,
	}
	ctx := context.WithoutCancel(c.Request.Context())
	go func() {
		if err := h.Audit.Record(ctx, ev); err != nil {
			logger.From(ctx).Warn("audit record failed", "err", err)
		}
	}()
}

func stateFromRoute(fullPath string) string {
	const prefix = "/demo/:connector/:instance_id/:instance_secret/"
	if s, ok := strings.CutPrefix(fullPath, prefix); ok {
		return s
	}
	return fullPath
}

func callContext(c *gin.Context) *CallContext {
	if v, ok := c.Get(ctxKeyCall); ok {
		if cc, ok := v.(*CallContext); ok {
			return cc
		}
	}
	return &CallContext{}
}
