package ivr

import (
	"bytes"
	"encoding/xml"
	"strconv"
)

// Minimal TwiML response builder. It intentionally avoids any provider SDK
// dependency; only the verbs this app emits are modelled.
//
// Verb structs carry their own XMLName so a heterogeneous verb list
// marshals to correctly named elements in insertion order.

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

type twimlSay struct {
	XMLName xml.Name `xml:"Say"`
	Text    string   `xml:",chardata"`
}

type twimlRedirect struct {
	XMLName xml.Name `xml:"Redirect"`
	URL     string   `xml:",chardata"`
}

type twimlPause struct {
	XMLName xml.Name `xml:"Pause"`
	Length  int      `xml:"length,attr"`
}

type twimlHangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

// Gather collects DTMF digits. An empty Action makes the provider resubmit
// the current URL, which the link-wait poll loop relies on.
type Gather struct {
	XMLName   xml.Name `xml:"Gather"`
	NumDigits int      `xml:"numDigits,attr,omitempty"`
	Action    string   `xml:"action,attr,omitempty"`
	Verbs     []any    `xml:",any"`
}

func (g *Gather) Say(text string) {
	g.Verbs = append(g.Verbs, twimlSay{Text: text})
}

func (g *Gather) Pause(seconds int) {
	g.Verbs = append(g.Verbs, twimlPause{Length: seconds})
}

// Pay hands the call to the provider's payment collection flow.
type Pay struct {
	XMLName          xml.Name `xml:"Pay"`
	PaymentConnector string   `xml:"paymentConnector,attr,omitempty"`
	ChargeAmount     string   `xml:"chargeAmount,attr,omitempty"`
	PostalCode       string   `xml:"postalCode,attr"`
	PaymentMethod    string   `xml:"paymentMethod,attr,omitempty"`
	BankAccountType  string   `xml:"bankAccountType,attr,omitempty"`
	Action           string   `xml:"action,attr,omitempty"`
	Description      string   `xml:"description,attr,omitempty"`
	Children         []any    `xml:",any"`
}

type twimlParameter struct {
	XMLName xml.Name `xml:"Parameter"`
	Name    string   `xml:"name,attr"`
	Value   string   `xml:"value,attr"`
}

// PayPrompt customises what the provider speaks during a payment phase.
type PayPrompt struct {
	XMLName xml.Name `xml:"Prompt"`
	For     string   `xml:"for,attr,omitempty"`
	Verbs   []any    `xml:",any"`
}

func (p *Pay) Parameter(name, value string) {
	p.Children = append(p.Children, twimlParameter{Name: name, Value: value})
}

func (p *Pay) Prompt(phase string) *PayPrompt {
	pp := &PayPrompt{For: phase}
	p.Children = append(p.Children, pp)
	return pp
}

func (pp *PayPrompt) Say(text string) {
	pp.Verbs = append(pp.Verbs, twimlSay{Text: text})
}

// PayOptions carries the <Pay> attributes. Zero values are omitted except
// PostalCode, which the provider defaults to true when absent.
type PayOptions struct {
	PaymentConnector string
	ChargeAmount     string
	PostalCode       bool
	PaymentMethod    string
	BankAccountType  string
	Action           string
	Description      string
}

type GatherOptions struct {
	NumDigits int
	Action    string
}

// VoiceResponse accumulates verbs in speaking order.
type VoiceResponse struct {
	verbs []any
}

func NewVoiceResponse() *VoiceResponse { return &VoiceResponse{} }

func (r *VoiceResponse) Say(text string) {
	r.verbs = append(r.verbs, twimlSay{Text: text})
}

func (r *VoiceResponse) Redirect(url string) {
	r.verbs = append(r.verbs, twimlRedirect{URL: url})
}

// Hangup ends the call. Only useful after a terminal announcement; a
// response that ends without Redirect or Gather hangs up anyway.
func (r *VoiceResponse) Hangup() {
	r.verbs = append(r.verbs, twimlHangup{})
}

func (r *VoiceResponse) Gather(opts GatherOptions) *Gather {
	g := &Gather{NumDigits: opts.NumDigits, Action: opts.Action}
	r.verbs = append(r.verbs, g)
	return g
}

func (r *VoiceResponse) Pay(opts PayOptions) *Pay {
	p := &Pay{
		PaymentConnector: opts.PaymentConnector,
		ChargeAmount:     opts.ChargeAmount,
		PostalCode:       strconv.FormatBool(opts.PostalCode),
		PaymentMethod:    opts.PaymentMethod,
		BankAccountType:  opts.BankAccountType,
		Action:           opts.Action,
		Description:      opts.Description,
	}
	r.verbs = append(r.verbs, p)
	return p
}

// Render marshals the accumulated verbs to a TwiML document.
func (r *VoiceResponse) Render() (string, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(twimlResponse{Verbs: r.verbs}); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
