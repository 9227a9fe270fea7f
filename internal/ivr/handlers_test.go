package ivr

import (
	"context"
	"encoding/json"
	"html"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/shuttle-global/twilio-demo-app/internal/shuttle"
)

// fakeGateway is an in-memory stand-in for the Shuttle REST API, serving the
// same envelopes the real gateway returns. It records mutating request bodies
// so tests can assert what the handlers sent.
type fakeGateway struct {
	mu sync.Mutex

	unauthorized bool

	instance     *shuttle.Instance
	capabilities *shuttle.Capabilities
	methods      []shuttle.PaymentMethod
	payments     map[string]*shuttle.Payment

	created *shuttle.Payment
	nonce   string
	refund  *shuttle.TransactionResult
	capture *shuttle.TransactionResult
	void    *shuttle.TransactionResult

	createPaymentBody shuttle.CreatePaymentRequest
	checkoutBody      shuttle.CreateCheckoutRequest
	deleted           []string
}

func defaultGateway() *fakeGateway {
	all := []string{
		shuttle.FeaturePayment,
		shuttle.FeatureAuthorise,
		shuttle.FeaturePaymentAndSaveToken,
		shuttle.FeatureSaveCard,
	}
	return &fakeGateway{
		instance: &shuttle.Instance{ID: "i1", Name: "Acme Stores", Environment: shuttle.EnvironmentSandbox},
		capabilities: &shuttle.Capabilities{
			PaymentsReady: true,
			MOTOTypes: map[string]shuttle.TypeCapability{
				"VISA": {Features: all},
				"ACH":  {Features: all},
			},
		},
		methods:  []shuttle.PaymentMethod{{ID: "pm1", Name: "Visa ending 1111", Type: "VISA"}},
		payments: map[string]*shuttle.Payment{},
		nonce:    "nonce-1",
	}
}

func (f *fakeGateway) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		if f.unauthorized {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		writeJSON := func(v any) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(v)
		}
		lastSegment := func(p string) string { return p[strings.LastIndex(p, "/")+1:] }
		path := r.URL.Path

		switch {
		case r.Method == http.MethodGet && strings.HasSuffix(path, "/capabilities"):
			if f.capabilities == nil {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			writeJSON(map[string]any{"capabilities": f.capabilities})

		case r.Method == http.MethodGet && strings.Contains(path, "/accounts/") && strings.HasSuffix(path, "/payment_methods"):
			writeJSON(map[string]any{"payment_methods": f.methods})

		case r.Method == http.MethodGet && strings.Contains(path, "/payment_methods/"):
			id := lastSegment(path)
			for _, pm := range f.methods {
				if pm.ID == id {
					writeJSON(map[string]any{"payment_method": pm})
					return
				}
			}
			w.WriteHeader(http.StatusNotFound)

		case r.Method == http.MethodDelete && strings.Contains(path, "/payment_methods/"):
			f.deleted = append(f.deleted, lastSegment(path))

		case r.Method == http.MethodPost && strings.HasSuffix(path, "/checkout"):
			_ = json.NewDecoder(r.Body).Decode(&f.checkoutBody)
			writeJSON(shuttle.Checkout{Nonce: f.nonce})

		case r.Method == http.MethodPost && strings.HasSuffix(path, "/payments"):
			_ = json.NewDecoder(r.Body).Decode(&f.createPaymentBody)
			writeJSON(map[string]any{"payment": f.created})

		case r.Method == http.MethodPost && strings.HasSuffix(path, "/refund"):
			writeJSON(map[string]any{"refund": f.refund})

		case r.Method == http.MethodPost && strings.HasSuffix(path, "/capture"):
			writeJSON(map[string]any{"capture": f.capture})

		case r.Method == http.MethodPost && strings.HasSuffix(path, "/void"):
			writeJSON(map[string]any{"void": f.void})

		case r.Method == http.MethodGet && strings.Contains(path, "/payments/"):
			if p, ok := f.payments[lastSegment(path)]; ok {
				writeJSON(map[string]any{"payment": p})
				return
			}
			w.WriteHeader(http.StatusNotFound)

		case r.Method == http.MethodGet && strings.Contains(path, "/instances/"):
			if f.instance == nil {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			writeJSON(map[string]any{"instance": f.instance})

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

type smsMessage struct {
	From, To, Body string
}

type fakeSMS struct {
	mu   sync.Mutex
	sent []smsMessage
}

func (f *fakeSMS) Send(_ context.Context, from, to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, smsMessage{From: from, To: to, Body: body})
	return nil
}

type fakeLinks struct{}

func (fakeLinks) PaymentLinkURL(instanceID, nonce string) (string, error) {
	return "https://pay.example/" + instanceID + "/" + nonce, nil
}

type harness struct {
	gw     *fakeGateway
	sms    *fakeSMS
	engine *gin.Engine
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gw := defaultGateway()
	srv := httptest.NewServer(gw.handler())
	t.Cleanup(srv.Close)

	sms := &fakeSMS{}
	h := &Handlers{
		API:   shuttle.NewClient(srv.URL, nil),
		SMS:   sms,
		Links: fakeLinks{},
	}

	r := gin.New()
	h.Register(r.Group("/demo/:connector/:instance_id/:instance_secret"))
	return &harness{gw: gw, sms: sms, engine: r}
}

// app prefixes a state suffix with the tenant path every test uses.
func app(suffix string) string { return "/demo/my_connector/i1/s1" + suffix }

func callerForm() url.Values {
	return url.Values{
		"Caller": {"+15551234567"},
		"Called": {"+15550009999"},
	}
}

func (th *harness) do(t *testing.T, method, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var body *strings.Reader
	if form == nil {
		body = strings.NewReader("")
	} else {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	w := httptest.NewRecorder()
	th.engine.ServeHTTP(w, req)
	return w
}

func (th *harness) post(t *testing.T, path string, form url.Values) string {
	t.Helper()
	w := th.do(t, http.MethodPost, path, form)
	if w.Code != http.StatusOK {
		t.Fatalf("POST %s returned %d: %s", path, w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/xml") {
		t.Fatalf("POST %s content type %q", path, ct)
	}
	return w.Body.String()
}

func wantContains(t *testing.T, body string, wants ...string) {
	t.Helper()
	// encoding/xml escapes apostrophes in spoken text ("You've" renders as
	// "You&#39;ve"); assert against the unescaped document so expectations
	// read like the prompts.
	unescaped := html.UnescapeString(body)
	for _, want := range wants {
		if !strings.Contains(unescaped, want) {
			t.Fatalf("missing %q in response:\n%s", want, body)
		}
	}
}

func TestStartGetRedirectsToPost(t *testing.T) {
	th := newHarness(t)

	w := th.do(t, http.MethodGet, app("/start"), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	wantContains(t, w.Body.String(), "<Redirect>"+app("/start")+"</Redirect>")
}

func TestStartConfiguredInstance(t *testing.T) {
	th := newHarness(t)

	body := th.post(t, app("/start"), callerForm())
	wantContains(t, body,
		"Welcome to the Shuttle phone payments demo for Acme Stores.",
		"This is a TEST environment and requires the use of TEST card numbers.",
		`action="`+app("/main_menu")+`"`,
		"1 for a new payment",
		"5 to delete a previously tokenised payment method",
	)
}

func TestStartLiveInstanceWarning(t *testing.T) {
	th := newHarness(t)
	th.gw.instance.Environment = "LIVE"

	body := th.post(t, app("/start"), callerForm())
	wantContains(t, body, "This is a LIVE environment, processing REAL payments.")
}

func TestStartUnconfiguredGateway(t *testing.T) {
	th := newHarness(t)
	th.gw.capabilities = nil

	body := th.post(t, app("/start"), callerForm())
	wantContains(t, body, "You've not yet configured your gateway")
}

func TestStartUnknownInstance(t *testing.T) {
	th := newHarness(t)
	th.gw.instance = nil

	body := th.post(t, app("/start"), callerForm())
	wantContains(t, body, "The call webhook URL was incorrect", "<Hangup")
}

func TestMainMenuDigitZeroResets(t *testing.T) {
	th := newHarness(t)

	// Any all-zero input is the reset digit, however many times it was hit.
	for _, digits := range []string{"0", "00"} {
		form := callerForm()
		form.Set("Digits", digits)
		body := th.post(t, app("/main_menu?choice=0"), form)
		wantContains(t, body, "<Redirect>"+app("/main_menu")+"</Redirect>")
	}
}

func TestMainMenuDescendIntoSubmenu(t *testing.T) {
	th := newHarness(t)

	form := callerForm()
	form.Set("Digits", "1")
	body := th.post(t, app("/main_menu"), form)
	wantContains(t, body,
		`action="`+app("/main_menu?choice=0")+`"`,
		"1 for card",
		"2 for ACH",
	)
}

func TestMainMenuRedirectLeaf(t *testing.T) {
	th := newHarness(t)

	form := callerForm()
	form.Set("Digits", "1")
	body := th.post(t, app("/main_menu?choice=0"), form)
	wantContains(t, body, "<Redirect>"+app("/new_payment?type=CARD")+"</Redirect>")
}

func TestMainMenuInvalidSelection(t *testing.T) {
	th := newHarness(t)

	form := callerForm()
	form.Set("Digits", "9")
	body := th.post(t, app("/main_menu"), form)
	wantContains(t, body, "Sorry, invalid selection", "1 for a new payment")
}

func TestMainMenuBadChoicePathRecovers(t *testing.T) {
	th := newHarness(t)

	body := th.post(t, app("/main_menu?choice=abc"), callerForm())
	wantContains(t, body, "Sorry, something went wrong.", "1 for a new payment")
}

func TestMainMenuStaleChoicePathRecovers(t *testing.T) {
	// A path that resolved against yesterday's tree may point past the end of
	// today's. The caller hears an apology, then the root menu.
	th := newHarness(t)

	body := th.post(t, app("/main_menu?choice=7,3"), callerForm())
	wantContains(t, body, "Sorry, something went wrong.", "1 for a new payment")
}

func TestNewPaymentCard(t *testing.T) {
	th := newHarness(t)

	form := callerForm()
	form.Set("FromCountry", "US")
	body := th.post(t, app("/new_payment?type=CARD"), form)
	wantContains(t, body,
		"You are going to pay 1 USD",
		`paymentConnector="my_connector"`,
		`chargeAmount="1"`,
		`postalCode="true"`,
		`action="`+app("/payment_response")+`"`,
		`<Parameter name="account_crm_key" value="DEMO_15551234567">`,
		`<Parameter name="account_phone" value="15551234567">`,
		`<Prompt for="payment-processing">`,
		"Please wait while we process your payment",
	)
	if strings.Contains(body, `name="action"`) {
		t.Fatalf("plain payment must not carry an action parameter:\n%s", body)
	}
}

func TestNewPaymentACHAuthorisation(t *testing.T) {
	th := newHarness(t)

	form := callerForm()
	form.Set("FromCountry", "GB")
	body := th.post(t, app("/new_payment?type=ACH&account_type=consumer-checking&action=AUTH"), form)
	wantContains(t, body,
		"You are going to authorize 1 USD",
		`postalCode="false"`,
		`paymentMethod="ach-debit"`,
		`bankAccountType="consumer-checking"`,
		`<Parameter name="action" value="AUTH">`,
	)
}

func TestNewPaymentSaveCard(t *testing.T) {
	th := newHarness(t)

	body := th.post(t, app("/new_payment?type=CARD&save=Y"), callerForm())
	wantContains(t, body,
		"and save the payment method for reuse",
		`<Parameter name="save_card" value="true">`,
	)
}

func TestNewPaymentTokenise(t *testing.T) {
	th := newHarness(t)

	body := th.post(t, app("/new_payment?type=CARD&action=TOKENISE"), callerForm())
	wantContains(t, body, "You are going to save a payment method for reuse")
	if strings.Contains(body, "chargeAmount=") {
		t.Fatalf("tokenise must not carry a charge amount:\n%s", body)
	}
}

func TestNewPaymentAnonymousCaller(t *testing.T) {
	// Without caller id there is no account to attach parameters to.
	th := newHarness(t)

	body := th.post(t, app("/new_payment?type=CARD"), nil)
	if strings.Contains(body, "account_crm_key") {
		t.Fatalf("anonymous call must not send account parameters:\n%s", body)
	}
}

func TestPaymentResponseBranches(t *testing.T) {
	th := newHarness(t)

	form := callerForm()
	form.Set("PaymentConfirmationCode", "pay-1")
	body := th.post(t, app("/payment_response"), form)
	wantContains(t, body, "<Redirect>"+app("/payment/pay-1")+"</Redirect>")

	form = callerForm()
	form.Set("PaymentToken", "tok-1")
	body = th.post(t, app("/payment_response"), form)
	wantContains(t, body, "<Redirect>"+app("/payment_method/tok-1")+"</Redirect>")

	form = callerForm()
	form.Set("PaymentError", "input-timeout")
	body = th.post(t, app("/payment_response"), form)
	wantContains(t, body,
		"Sorry, there was an error, input-timeout",
		"<Redirect>"+app("/main_menu")+"</Redirect>",
	)
}

func TestRepeatPayment(t *testing.T) {
	th := newHarness(t)
	th.gw.created = &shuttle.Payment{ID: "pay-9", Status: shuttle.StatusSuccess}

	body := th.post(t, app("/repeat_payment?payment_method=pm1"), callerForm())
	wantContains(t, body,
		"You are going to pay 1 USD using your Visa ending 1111",
		"<Redirect>"+app("/payment/pay-9")+"</Redirect>",
	)

	sent := th.gw.createPaymentBody.Payment
	if sent.Source != shuttle.SourceMOTO {
		t.Fatalf("source %q", sent.Source)
	}
	if sent.PaymentMethod != "pm1" || sent.Account != "DEMO_15551234567" {
		t.Fatalf("unexpected payment details: %+v", sent)
	}
	if sent.Currency != "USD" || sent.Amount != "1" {
		t.Fatalf("unexpected amount: %+v", sent)
	}
}

func TestRepeatPaymentUnknownMethod(t *testing.T) {
	th := newHarness(t)

	body := th.post(t, app("/repeat_payment?payment_method=nope"), callerForm())
	wantContains(t, body,
		"Invalid selection, returning to main menu",
		"<Redirect>"+app("/main_menu")+"</Redirect>",
	)
}

func TestPaymentLink(t *testing.T) {
	th := newHarness(t)

	body := th.post(t, app("/payment_link"), callerForm())
	wantContains(t, body,
		"We've sent you a link to pay 1 USD",
		"<Redirect>"+app("/payment_link/link-"),
	)

	if len(th.sms.sent) != 1 {
		t.Fatalf("expected 1 sms, got %d", len(th.sms.sent))
	}
	msg := th.sms.sent[0]
	if msg.To != "+15551234567" {
		t.Fatalf("sms to %q", msg.To)
	}
	if msg.From != "+15550009999" {
		t.Fatalf("sms from %q, want the dialled number", msg.From)
	}
	if !strings.Contains(msg.Body, "https://pay.example/i1/nonce-1") {
		t.Fatalf("sms body %q", msg.Body)
	}

	opts := th.gw.checkoutBody.Options
	if opts.InstanceKey != "i1" || opts.Amount != "1" || opts.Currency != "USD" {
		t.Fatalf("unexpected checkout options: %+v", opts)
	}
	if opts.Account.CRMKey != "DEMO_15551234567" {
		t.Fatalf("checkout crm key %q", opts.Account.CRMKey)
	}
	if opts.AltKey == "" || !strings.Contains(body, opts.AltKey) {
		t.Fatalf("link alt key %q not used in wait redirect:\n%s", opts.AltKey, body)
	}
}

func TestPaymentLinkWaitStillPending(t *testing.T) {
	th := newHarness(t)
	th.gw.payments["link-1"] = &shuttle.Payment{ID: "pay-1", Status: shuttle.StatusUnresolved}

	body := th.post(t, app("/payment_link/link-1/wait"), callerForm())
	wantContains(t, body,
		"Press 1 when you've completed payment, or 0 to return to the main menu",
		`<Pause length="7">`,
		"<Redirect>"+app("/payment_link/link-1/wait?attempt=1")+"</Redirect>",
	)
}

func TestPaymentLinkWaitCompleted(t *testing.T) {
	th := newHarness(t)
	th.gw.payments["link-1"] = &shuttle.Payment{ID: "pay-1", Status: shuttle.StatusSuccess}

	body := th.post(t, app("/payment_link/link-1/wait"), callerForm())
	wantContains(t, body, "<Redirect>"+app("/payment/pay-1")+"</Redirect>")
}

func TestPaymentLinkWaitEscapeDigit(t *testing.T) {
	th := newHarness(t)

	form := callerForm()
	form.Set("Digits", "0")
	body := th.post(t, app("/payment_link/link-1/wait"), form)
	wantContains(t, body, "<Redirect>"+app("/main_menu")+"</Redirect>")
}

func TestPaymentLinkWaitGivesUp(t *testing.T) {
	th := newHarness(t)

	body := th.post(t, app("/payment_link/link-1/wait?attempt=12"), callerForm())
	wantContains(t, body,
		"We've not seen your payment yet, returning to the main menu.",
		"<Redirect>"+app("/main_menu")+"</Redirect>",
	)
}

func TestPaymentViewApproved(t *testing.T) {
	th := newHarness(t)
	th.gw.payments["pay-1"] = &shuttle.Payment{ID: "pay-1", Status: shuttle.StatusSuccess, Reference: "R1"}

	body := th.post(t, app("/payment/pay-1"), callerForm())
	wantContains(t, body,
		"Your payment was Approved! Your reference is R1.",
		"<Redirect>"+app("/payment/pay-1/payment_menu")+"</Redirect>",
	)
}

func TestPaymentViewPending(t *testing.T) {
	th := newHarness(t)
	th.gw.payments["pay-1"] = &shuttle.Payment{ID: "pay-1", Status: shuttle.StatusPending}

	body := th.post(t, app("/payment/pay-1"), callerForm())
	wantContains(t, body,
		"still processing, you should not dispatch any goods",
		"<Redirect>"+app("/main_menu")+"</Redirect>",
	)
}

func TestPaymentViewDeclined(t *testing.T) {
	th := newHarness(t)
	th.gw.payments["pay-1"] = &shuttle.Payment{
		ID: "pay-1", Status: shuttle.StatusDeclined,
		GatewayStatus: "HARD_DECLINE", GatewayReference: "insufficient funds",
	}

	body := th.post(t, app("/payment/pay-1"), callerForm())
	wantContains(t, body,
		"Payment failed, with decline type HARD_DECLINE, reason: insufficient funds",
		"<Redirect>"+app("/main_menu")+"</Redirect>",
	)
}

func TestPaymentViewNotFound(t *testing.T) {
	th := newHarness(t)

	body := th.post(t, app("/payment/pay-404"), callerForm())
	wantContains(t, body,
		"Sorry, we could not find that payment.",
		"<Redirect>"+app("/main_menu")+"</Redirect>",
	)
}

func TestPaymentMenuOptions(t *testing.T) {
	th := newHarness(t)
	th.gw.payments["pay-1"] = &shuttle.Payment{ID: "pay-1", Status: shuttle.StatusSuccess, Balance: 1, Authorised: 1}

	body := th.post(t, app("/payment/pay-1/payment_menu"), callerForm())
	wantContains(t, body,
		`action="`+app("/payment/pay-1/payment_menu_response")+`"`,
		"1 to refund",
		"2 to capture the payment",
		"3 to void the authorisation",
		"0 to return to the main menu",
	)
}

func TestPaymentMenuSettledPayment(t *testing.T) {
	// Fully refunded and captured: nothing left to act on.
	th := newHarness(t)
	th.gw.payments["pay-1"] = &shuttle.Payment{ID: "pay-1", Status: shuttle.StatusSuccess}

	body := th.post(t, app("/payment/pay-1/payment_menu"), callerForm())
	for _, gone := range []string{"1 to refund", "2 to capture", "3 to void"} {
		if strings.Contains(body, gone) {
			t.Fatalf("unexpected option %q:\n%s", gone, body)
		}
	}
	wantContains(t, body, "0 to return to the main menu")
}

func TestPaymentMenuResponseRefund(t *testing.T) {
	th := newHarness(t)
	th.gw.refund = &shuttle.TransactionResult{ID: "ref-1", Status: shuttle.StatusSuccess, Reference: "RR1"}

	form := callerForm()
	form.Set("Digits", "1")
	body := th.post(t, app("/payment/pay-1/payment_menu_response"), form)
	wantContains(t, body,
		"Payment refunded, reference RR1.",
		"Returning to main menu.",
		"<Redirect>"+app("/main_menu")+"</Redirect>",
	)
}

func TestPaymentMenuResponseCapturePending(t *testing.T) {
	th := newHarness(t)
	th.gw.capture = &shuttle.TransactionResult{ID: "cap-1", Status: shuttle.StatusPending, Reference: "CR1"}

	form := callerForm()
	form.Set("Digits", "2")
	body := th.post(t, app("/payment/pay-1/payment_menu_response"), form)
	wantContains(t, body,
		"Capture in progress, reference CR1.",
		"<Redirect>"+app("/main_menu")+"</Redirect>",
	)
}

func TestPaymentMenuResponseVoidDeclined(t *testing.T) {
	th := newHarness(t)
	th.gw.void = &shuttle.TransactionResult{ID: "void-1", Status: shuttle.StatusDeclined, Reference: "VR1"}

	form := callerForm()
	form.Set("Digits", "3")
	body := th.post(t, app("/payment/pay-1/payment_menu_response"), form)
	wantContains(t, body,
		"Void failed, reference VR1",
		"<Redirect>"+app("/payment/pay-1/payment_menu")+"</Redirect>",
	)
}

func TestPaymentMenuResponseZeroAndUnknownDigits(t *testing.T) {
	th := newHarness(t)

	form := callerForm()
	form.Set("Digits", "0")
	body := th.post(t, app("/payment/pay-1/payment_menu_response"), form)
	wantContains(t, body, "<Redirect>"+app("/main_menu")+"</Redirect>")

	form.Set("Digits", "7")
	body = th.post(t, app("/payment/pay-1/payment_menu_response"), form)
	wantContains(t, body, "<Redirect>"+app("/payment/pay-1/payment_menu")+"</Redirect>")
}

func TestPaymentMethodView(t *testing.T) {
	th := newHarness(t)

	body := th.post(t, app("/payment_method/pm1"), callerForm())
	wantContains(t, body,
		"You have saved your Visa ending 1111",
		"<Redirect>"+app("/main_menu")+"</Redirect>",
	)
}

func TestPaymentMethodViewUnknown(t *testing.T) {
	th := newHarness(t)

	body := th.post(t, app("/payment_method/pm-404"), callerForm())
	wantContains(t, body, "You have saved your payment method")
}

func TestPaymentMethodDelete(t *testing.T) {
	th := newHarness(t)

	body := th.post(t, app("/payment_method/pm1/delete"), callerForm())
	wantContains(t, body,
		"Deleted Visa ending 1111",
		"<Redirect>"+app("/main_menu")+"</Redirect>",
	)

	th.gw.mu.Lock()
	deleted := append([]string(nil), th.gw.deleted...)
	th.gw.mu.Unlock()
	if len(deleted) != 1 || deleted[0] != "pm1" {
		t.Fatalf("deleted %v", deleted)
	}
}

func TestUnauthorizedGateway(t *testing.T) {
	th := newHarness(t)
	th.gw.unauthorized = true

	w := th.do(t, http.MethodPost, app("/payment_method/pm1/delete"), callerForm())
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Unauthorized") {
		t.Fatalf("body %s", w.Body.String())
	}
}
