// Package ivr drives the phone payment demo: a stateless voice-menu state
// machine where every webhook turn rebuilds the menu from live gateway data,
// navigation travels in a query parameter, and each state answers with voice
// markup that tells the provider what to say or where to go next.
package ivr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shuttle-global/twilio-demo-app/internal/audit"
	"github.com/shuttle-global/twilio-demo-app/internal/shuttle"
	"github.com/shuttle-global/twilio-demo-app/pkg/logger"
)

// SMSSender dispatches payment links to the caller's handset.
type SMSSender interface {
	Send(ctx context.Context, from, to, body string) error
}

// LinkBuilder turns a checkout nonce into the URL texted to the caller.
type LinkBuilder interface {
	PaymentLinkURL(instanceID, nonce string) (string, error)
}

// Handlers holds the collaborators of the call state machine.
type Handlers struct {
	API   *shuttle.Client
	SMS   SMSSender
	Links LinkBuilder

	// SMSFrom is the configured sender number; when empty the dialled
	// number of the current call is used.
	SMSFrom string

	Audit *audit.Service
}

// maxLinkWaitPolls bounds the payment-link busy-poll loop. At a ~7 second
// pause per turn this gives the caller roughly a minute and a half before
// the call falls back to the main menu.
const maxLinkWaitPolls = 12

func respondTwiML(c *gin.Context, vr *VoiceResponse) {
	body, err := vr.Render()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.Data(http.StatusOK, "text/xml", []byte(body))
}

// fail ends the turn with a generic response. Internal detail goes to logs
// only; the voice channel never hears it.
func (h *Handlers) fail(c *gin.Context, err error) {
	logger.FromGin(c).Error("handler failed", "err", err)
	if errors.Is(err, shuttle.ErrUnauthorized) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

func sayMenu(g *Gather, items []MenuNode) {
	for i, item := range items {
		g.Say(fmt.Sprintf("%d %s", i+1, item.Name))
	}
}

// Start is the call entry point. Providers may not deliver caller id on GET,
// so a GET answers with a redirect that makes the provider resubmit as POST.
func (h *Handlers) Start(c *gin.Context) {
	cc := callContext(c)
	vr := NewVoiceResponse()

	if c.Request.Method == http.MethodGet {
		vr.Redirect(cc.AppPath("/start"))
		respondTwiML(c, vr)
		return
	}

	instance, _ := cc.Instance()
	caps, _ := cc.Capabilities()

	switch {
	case instance != nil && caps != nil && caps.PaymentsReady:
		g := vr.Gather(GatherOptions{NumDigits: 1, Action: cc.AppPath("/main_menu")})
		g.Say(fmt.Sprintf("Welcome to the Shuttle phone payments demo for %s.", instance.Name))
		if instance.Environment == shuttle.EnvironmentSandbox {
			g.Say("This is a TEST environment and requires the use of TEST card numbers.")
		} else {
			g.Say("This is a LIVE environment, processing REAL payments.")
		}
		g.Say("Main menu")
		methods, _ := cc.PaymentMethods()
		sayMenu(g, BuildMainMenu(cc.AppPath, caps, methods))
	case instance != nil:
		vr.Say(fmt.Sprintf("Welcome to the Shuttle phone payments demo for %s.", instance.Name))
		vr.Say("You've not yet configured your gateway, please visit twilio.shuttleglobal.com and then try again.")
		vr.Hangup()
	default:
		vr.Say("Welcome to the Shuttle phone payments demo. The call webhook URL was incorrect, please check it and try again.")
		vr.Hangup()
	}

	respondTwiML(c, vr)
}

// MainMenu renders one level of the menu tree and advances on digit input.
// Digit 0 always resets to the root; an unresolvable navigation path speaks
// an apology and restarts at the root instead of failing the call.
func (h *Handlers) MainMenu(c *gin.Context) {
	cc := callContext(c)
	vr := NewVoiceResponse()

	caps, _ := cc.Capabilities()
	methods, _ := cc.PaymentMethods()
	root := BuildMainMenu(cc.AppPath, caps, methods)

	choices, err := ParseChoicePath(c.Query("choice"))
	var menu []MenuNode
	if err == nil {
		menu, err = Resolve(root, choices)
	}
	if err != nil {
		vr.Say("Sorry, something went wrong.")
		choices = nil
		// The root may legitimately be empty when no capability is
		// configured; the caller then hears an empty prompt.
		menu, _ = Resolve(root, nil)
	}

	// "0", "00", ... all reset; the reset digit may be pressed repeatedly.
	digits := c.PostForm("Digits")
	if digits != "" && strings.Trim(digits, "0") == "" {
		vr.Redirect(cc.AppPath("/main_menu"))
		respondTwiML(c, vr)
		return
	}

	if d, derr := strconv.Atoi(digits); derr == nil && d >= 1 {
		idx := d - 1
		switch {
		case idx < len(menu) && menu[idx].Redirect != "":
			vr.Redirect(menu[idx].Redirect)
			respondTwiML(c, vr)
			return
		case idx < len(menu) && len(menu[idx].Children) > 0:
			menu = menu[idx].Children
			choices = append(choices, idx)
		case idx < len(menu):
			vr.Say("Sorry, invalid menu config, every node must have a sub menu or redirect")
		default:
			vr.Say("Sorry, invalid selection")
		}
	}

	g := vr.Gather(GatherOptions{
		NumDigits: 1,
		Action:    cc.AppPath("/main_menu?choice=" + FormatChoicePath(choices)),
	})
	g.Say("Press")
	sayMenu(g, menu)
	respondTwiML(c, vr)
}

// NewPayment announces the selected action and hands the call to the
// provider's payment collection flow via a <Pay> directive.
func (h *Handlers) NewPayment(c *gin.Context) {
	cc := callContext(c)
	vr := NewVoiceResponse()

	action := c.Query("action")
	save := c.Query("save") == "Y"
	payType := c.Query("type")

	if action == shuttle.ActionTokenise {
		vr.Say("You are going to save a payment method for reuse")
	} else {
		msg := fmt.Sprintf("You are going to %s 1 USD", payVerb(action))
		if save {
			msg += " and save the payment method for reuse"
		}
		vr.Say(msg)
	}

	chargeAmount := "1"
	if action == shuttle.ActionTokenise {
		chargeAmount = ""
	}
	paymentMethod := ""
	if payType == "ACH" {
		paymentMethod = "ach-debit"
	}

	pay := vr.Pay(PayOptions{
		PaymentConnector: cc.Connector,
		ChargeAmount:     chargeAmount,
		PostalCode:       c.PostForm("FromCountry") == "US",
		PaymentMethod:    paymentMethod,
		BankAccountType:  c.Query("account_type"),
		Action:           cc.AppPath("/payment_response"),
		Description:      fmt.Sprintf("Demo App - %s %s", payType, actionLabel(action)),
	})

	if c.PostForm("Caller") != "" {
		pay.Parameter("account_crm_key", cc.AccountKey)
		pay.Parameter("account_phone", cc.CallerPhone)
	}
	if action == shuttle.ActionAuth {
		pay.Parameter("action", shuttle.ActionAuth)
	}
	if save {
		pay.Parameter("save_card", "true")
	}

	prompt := pay.Prompt("payment-processing")
	prompt.Say("Please wait while we process your payment, this may take a few seconds.")

	respondTwiML(c, vr)
}

// PaymentResponse is the provider's callback after out-of-band payment
// collection.
func (h *Handlers) PaymentResponse(c *gin.Context) {
	cc := callContext(c)
	vr := NewVoiceResponse()

	switch {
	case c.PostForm("PaymentConfirmationCode") != "":
		vr.Redirect(cc.AppPath("/payment/" + c.PostForm("PaymentConfirmationCode")))
	case c.PostForm("PaymentToken") != "":
		vr.Redirect(cc.AppPath("/payment_method/" + c.PostForm("PaymentToken")))
	default:
		vr.Say(fmt.Sprintf("Sorry, there was an error, %s", c.PostForm("PaymentError")))
		vr.Redirect(cc.AppPath("/main_menu"))
	}

	respondTwiML(c, vr)
}

// RepeatPayment charges a previously saved payment method.
func (h *Handlers) RepeatPayment(c *gin.Context) {
	cc := callContext(c)
	vr := NewVoiceResponse()

	methods, _ := cc.PaymentMethods()
	action := c.Query("action")
	want := c.Query("payment_method")

	var selected *shuttle.PaymentMethod
	for i := range methods {
		if methods[i].ID == want {
			selected = &methods[i]
			break
		}
	}

	if selected == nil {
		vr.Say("Invalid selection, returning to main menu")
		vr.Redirect(cc.AppPath("/main_menu"))
		respondTwiML(c, vr)
		return
	}

	vr.Say(fmt.Sprintf("You are going to %s 1 USD using your %s", payVerb(action), selected.Name))

	payment, err := h.API.CreatePayment(c.Request.Context(), cc.Auth, shuttle.CreatePaymentRequest{
		Payment: shuttle.PaymentDetails{
			Source:        shuttle.SourceMOTO,
			Action:        action,
			Currency:      "USD",
			Amount:        "1",
			Description:   fmt.Sprintf("Demo App - Saved card %s", actionLabel(action)),
			PaymentMethod: selected.ID,
			Account:       cc.AccountKey,
		},
	})
	if err != nil || payment == nil {
		if err == nil {
			err = errors.New("ivr: create payment returned no payment")
		}
		h.fail(c, err)
		return
	}

	vr.Redirect(cc.AppPath("/payment/" + payment.ID))
	respondTwiML(c, vr)
}

// PaymentLink creates a checkout basket, texts the caller a link to it, and
// moves the call into the wait loop.
func (h *Handlers) PaymentLink(c *gin.Context) {
	cc := callContext(c)
	vr := NewVoiceResponse()
	ctx := c.Request.Context()

	action := c.Query("action")
	save := c.Query("save") == "Y"

	linkID := fmt.Sprintf("link-%d", time.Now().UnixMilli())

	amount := "1"
	if action == shuttle.ActionTokenise {
		amount = ""
	}

	checkout, err := h.API.CreateCheckout(ctx, cc.Auth, shuttle.CreateCheckoutRequest{
		Options: shuttle.CheckoutOptions{
			InstanceKey: cc.Auth.InstanceID,
			Action:      action,
			AltKey:      linkID,
			Currency:    "USD",
			Amount:      amount,
			Description: "Demo App - Payment link",
			Account:     shuttle.CheckoutAccount{CRMKey: cc.AccountKey},
			SaveCard:    save,
		},
	})
	if err != nil || checkout == nil {
		if err == nil {
			err = errors.New("ivr: create checkout returned no nonce")
		}
		h.fail(c, err)
		return
	}

	linkURL, err := h.Links.PaymentLinkURL(cc.Auth.InstanceID, checkout.Nonce)
	if err != nil {
		h.fail(c, err)
		return
	}

	from := h.SMSFrom
	if from == "" {
		from = c.PostForm("Called")
	}
	if err := h.SMS.Send(ctx, from, c.PostForm("Caller"), "Please complete your payment here: "+linkURL); err != nil {
		// The wait loop still lets the caller bail out with 0.
		logger.FromGin(c).Warn("payment link sms failed", "err", err)
	}

	vr.Say(fmt.Sprintf("We've sent you a link to %s 1 USD, please follow the link to complete payment.", payVerb(action)))
	vr.Redirect(cc.AppPath("/payment_link/" + linkID + "/wait"))
	respondTwiML(c, vr)
}

// PaymentLinkWait polls the gateway for the linked payment. UNRESOLVED and
// lookup failures both mean "not yet". The loop is caller-escapable with
// digit 0 and bounded by an attempt counter carried in the query string.
func (h *Handlers) PaymentLinkWait(c *gin.Context) {
	cc := callContext(c)
	vr := NewVoiceResponse()

	link := c.Param("link")
	attempt, _ := strconv.Atoi(c.Query("attempt"))

	payment, err := h.API.GetPayment(c.Request.Context(), cc.Auth, link)
	if err != nil || (payment != nil && payment.Status == shuttle.StatusUnresolved) {
		payment = nil
	}

	switch {
	case payment != nil:
		vr.Redirect(cc.AppPath("/payment/" + payment.ID))
	case c.PostForm("Digits") == "0":
		vr.Redirect(cc.AppPath("/main_menu"))
	case attempt >= maxLinkWaitPolls:
		vr.Say("We've not seen your payment yet, returning to the main menu.")
		vr.Redirect(cc.AppPath("/main_menu"))
	default:
		g := vr.Gather(GatherOptions{NumDigits: 1})
		g.Say("Press 1 when you've completed payment, or 0 to return to the main menu")
		g.Pause(7)
		vr.Redirect(cc.AppPath(fmt.Sprintf("/payment_link/%s/wait?attempt=%d", link, attempt+1)))
	}

	respondTwiML(c, vr)
}

// PaymentView speaks the payment outcome by status.
func (h *Handlers) PaymentView(c *gin.Context) {
	cc := callContext(c)
	vr := NewVoiceResponse()

	payment, _ := cc.Payment()
	if payment == nil {
		vr.Say("Sorry, we could not find that payment.")
		vr.Redirect(cc.AppPath("/main_menu"))
		respondTwiML(c, vr)
		return
	}

	switch payment.Status {
	case shuttle.StatusSuccess, shuttle.StatusUnattributed:
		vr.Say(fmt.Sprintf("Your payment was Approved! Your reference is %s.", payment.Reference))
		vr.Redirect(cc.AppPath("/payment/" + payment.ID + "/payment_menu"))
	case shuttle.StatusPending, shuttle.StatusUnresolved:
		vr.Say("Your payment is still processing, you should not dispatch any goods until the payment completes.")
		vr.Redirect(cc.AppPath("/main_menu"))
	case shuttle.StatusDeclined:
		vr.Say(fmt.Sprintf("Payment failed, with decline type %s, reason: %s", payment.GatewayStatus, payment.GatewayReference))
		vr.Redirect(cc.AppPath("/main_menu"))
	default:
		vr.Say(fmt.Sprintf("Sorry there was an error: %s", c.PostForm("PaymentError")))
		vr.Redirect(cc.AppPath("/main_menu"))
	}

	respondTwiML(c, vr)
}

// PaymentMenu offers post-payment actions gated on the payment's balances.
func (h *Handlers) PaymentMenu(c *gin.Context) {
	cc := callContext(c)
	vr := NewVoiceResponse()

	payment, _ := cc.Payment()
	if payment == nil {
		vr.Say("Sorry, something went wrong.")
		vr.Redirect(cc.AppPath("/main_menu"))
		respondTwiML(c, vr)
		return
	}

	g := vr.Gather(GatherOptions{
		NumDigits: 1,
		Action:    cc.AppPath("/payment/" + payment.ID + "/payment_menu_response"),
	})
	g.Say("Payment Menu. Press")

	if payment.Balance > 0 {
		g.Say("1 to refund")
	}
	if payment.Authorised > 0 {
		g.Say("2 to capture the payment")
		g.Say("3 to void the authorisation")
	}
	g.Say("0 to return to the main menu")

	respondTwiML(c, vr)
}

// PaymentMenuResponse invokes refund, capture, or void for digits 1-3.
func (h *Handlers) PaymentMenuResponse(c *gin.Context) {
	cc := callContext(c)
	vr := NewVoiceResponse()
	ctx := c.Request.Context()

	switch c.PostForm("Digits") {
	case "1":
		result, err := h.API.RefundPayment(ctx, cc.Auth, cc.PaymentID, "")
		h.sayTransactionOutcome(vr, cc, result, err, "Payment refunded", "Refund in progress", "Refund failed")
	case "2":
		result, err := h.API.CapturePayment(ctx, cc.Auth, cc.PaymentID)
		h.sayTransactionOutcome(vr, cc, result, err, "Payment captured", "Capture in progress", "Capture failed")
	case "3":
		result, err := h.API.VoidPayment(ctx, cc.Auth, cc.PaymentID)
		h.sayTransactionOutcome(vr, cc, result, err, "Payment voided", "Void in progress", "Void failed")
	case "0":
		vr.Redirect(cc.AppPath("/main_menu"))
	default:
		vr.Redirect(cc.AppPath("/payment/" + cc.PaymentID + "/payment_menu"))
	}

	respondTwiML(c, vr)
}

// sayTransactionOutcome speaks a refund/capture/void result. Success and
// in-progress outcomes return to the main menu; failure returns to the
// payment menu for another try.
func (h *Handlers) sayTransactionOutcome(vr *VoiceResponse, cc *CallContext, result *shuttle.TransactionResult, err error, okMsg, pendingMsg, failMsg string) {
	if err != nil || result == nil {
		vr.Say(fmt.Sprintf("%s.", failMsg))
		vr.Redirect(cc.AppPath("/payment/" + cc.PaymentID + "/payment_menu"))
		return
	}

	switch result.Status {
	case shuttle.StatusSuccess:
		vr.Say(fmt.Sprintf("%s, reference %s.", okMsg, result.Reference))
		vr.Say("Returning to main menu.")
		vr.Redirect(cc.AppPath("/main_menu"))
	case shuttle.StatusPending, shuttle.StatusUnresolved:
		vr.Say(fmt.Sprintf("%s, reference %s.", pendingMsg, result.Reference))
		vr.Say("Returning to main menu.")
		vr.Redirect(cc.AppPath("/main_menu"))
	default:
		vr.Say(fmt.Sprintf("%s, reference %s", failMsg, result.Reference))
		vr.Redirect(cc.AppPath("/payment/" + cc.PaymentID + "/payment_menu"))
	}
}

// PaymentMethodView confirms a freshly tokenised payment method.
func (h *Handlers) PaymentMethodView(c *gin.Context) {
	cc := callContext(c)
	vr := NewVoiceResponse()

	name := "your payment method"
	if pm, _ := cc.PaymentMethod(); pm != nil {
		name = "your " + pm.Name
	}
	vr.Say(fmt.Sprintf("You have saved %s", name))
	vr.Say("Returning to main menu")
	vr.Redirect(cc.AppPath("/main_menu"))
	respondTwiML(c, vr)
}

// PaymentMethodDelete removes a tokenised payment method from the gateway.
func (h *Handlers) PaymentMethodDelete(c *gin.Context) {
	cc := callContext(c)
	vr := NewVoiceResponse()

	name := "payment method"
	if pm, _ := cc.PaymentMethod(); pm != nil {
		name = pm.Name
	}

	if err := h.API.DeletePaymentMethod(c.Request.Context(), cc.Auth, cc.PaymentMethodID); err != nil {
		h.fail(c, err)
		return
	}

	vr.Say("Deleted " + name)
	vr.Say("Returning to main menu")
	vr.Redirect(cc.AppPath("/main_menu"))
	respondTwiML(c, vr)
}

func payVerb(action string) string {
	if action == shuttle.ActionAuth {
		return "authorize"
	}
	return "pay"
}

func actionLabel(action string) string {
	if action == "" {
		return "payment"
	}
	return action
}
