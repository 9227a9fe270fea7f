package shuttle

// Gateway-owned resources. This app only reads and mutates them through the
// REST API; nothing here is persisted locally.

// Instance is a configured merchant account on the gateway.
type Instance struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Environment string `json:"environment"`
}

const EnvironmentSandbox = "SANDBOX"

// Capabilities maps payment-method types to the features an instance
// supports over the MOTO (phone) channel.
type Capabilities struct {
	PaymentsReady bool                      `json:"payments_ready"`
	MOTOTypes     map[string]TypeCapability `json:"payment_method_types_moto"`
}

type TypeCapability struct {
	Features []string `json:"features"`
}

// Features declared per payment-method type.
const (
	FeaturePayment             = "PAYMENT"
	FeatureAuthorise           = "AUTHORISE"
	FeaturePaymentAndSaveToken = "PAYMENT_AND_SAVE_TOKEN"
	FeatureSaveCard            = "SAVE_CARD"
)

// Supports reports whether the given payment-method type declares feature.
// A missing type entry means unsupported, never an error.
func (c *Capabilities) Supports(methodType, feature string) bool {
	if c == nil {
		return false
	}
	tc, ok := c.MOTOTypes[methodType]
	if !ok {
		return false
	}
	for _, f := range tc.Features {
		if f == feature {
			return true
		}
	}
	return false
}

// AnySupports reports whether any payment-method type declares feature.
func (c *Capabilities) AnySupports(feature string) bool {
	if c == nil {
		return false
	}
	for t := range c.MOTOTypes {
		if c.Supports(t, feature) {
			return true
		}
	}
	return false
}

// PaymentMethod is a tokenised payment method saved against an account.
type PaymentMethod struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Payment statuses the IVR flow branches on. Anything else is treated as an
// error outcome.
const (
	StatusSuccess      = "SUCCESS"
	StatusUnattributed = "UNATTRIBUTED"
	StatusPending      = "PENDING"
	StatusUnresolved   = "UNRESOLVED"
	StatusDeclined     = "DECLINED"
)

type Payment struct {
	ID               string  `json:"id"`
	Status           string  `json:"status"`
	Balance          float64 `json:"balance"`
	Authorised       float64 `json:"authorised"`
	Reference        string  `json:"reference"`
	GatewayStatus    string  `json:"gateway_status"`
	GatewayReference string  `json:"gateway_reference"`
}

// TransactionResult is the shared shape of refund/capture/void outcomes.
type TransactionResult struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Reference string `json:"reference"`
}

// Checkout is the result of creating a hosted payment link basket. The nonce
// keys the hosted checkout page.
type Checkout struct {
	Nonce string `json:"nonce"`
}

// CreatePaymentRequest wraps the gateway's payment creation envelope.
type CreatePaymentRequest struct {
	Payment PaymentDetails `json:"payment"`
}

// SourceMOTO marks payments taken over the phone channel.
const SourceMOTO = "MOTO"

// Payment actions selected from the menu. The empty action is an immediate
// charge.
const (
	ActionAuth     = "AUTH"
	ActionTokenise = "TOKENISE"
)

type PaymentDetails struct {
	Source        string `json:"source"`
	Action        string `json:"action,omitempty"`
	Currency      string `json:"currency"`
	Amount        string `json:"amount"`
	Description   string `json:"description,omitempty"`
	PaymentMethod string `json:"payment_method,omitempty"`
	Account       string `json:"account,omitempty"`
}

// CreateCheckoutRequest wraps the gateway's checkout/link creation envelope.
type CreateCheckoutRequest struct {
	Options CheckoutOptions `json:"options"`
}

type CheckoutOptions struct {
	InstanceKey string          `json:"instance_key"`
	Action      string          `json:"action,omitempty"`
	AltKey      string          `json:"alt_key"`
	Currency    string          `json:"currency"`
	Amount      string          `json:"amount,omitempty"`
	Description string          `json:"description,omitempty"`
	Account     CheckoutAccount `json:"account"`
	SaveCard    bool            `json:"save_card,omitempty"`
}

type CheckoutAccount struct {
	CRMKey string `json:"crm_key,omitempty"`
}
