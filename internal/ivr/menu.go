package ivr

import (
	"errors"
	"strconv"
	"strings"

	"github.com/shuttle-global/twilio-demo-app/internal/shuttle"
)

// MenuNode is one selectable entry in the voice menu. Nodes are ephemeral:
// the whole tree is rebuilt from live capability and payment-method data on
// every request and never persisted.
//
// After pruning, every retained node has either a non-empty Children list or
// a Redirect.
type MenuNode struct {
	Name     string
	Enabled  bool
	Children []MenuNode
	Redirect string
}

// ErrInvalidNavigation marks a navigation path that no longer resolves
// against the freshly built tree. Callers recover by restarting at the root.
var ErrInvalidNavigation = errors.New("ivr: invalid navigation path")

// BuildMainMenu constructs the pruned menu tree for the current
// capabilities and saved payment methods. appPath turns a state suffix into
// a full webhook path for the current tenant.
//
// A node is enabled only if the relevant capability declares the feature the
// node's action needs; a missing capability entry disables, it never errors.
func BuildMainMenu(appPath func(string) string, caps *shuttle.Capabilities, methods []shuttle.PaymentMethod) []MenuNode {
	achLeaves := func(names [3]string, suffix string) []MenuNode {
		accountTypes := [3]string{"consumer-checking", "consumer-savings", "commercial-checking"}
		leaves := make([]MenuNode, 0, len(accountTypes))
		for i, at := range accountTypes {
			leaves = append(leaves, MenuNode{
				Name:     names[i],
				Enabled:  true,
				Redirect: appPath("/new_payment?type=ACH&account_type=" + at + suffix),
			})
		}
		return leaves
	}
	achLongNames := [3]string{
		"to use a consumer checking account",
		"to use a consumer savings account",
		"to use a commercial checking account",
	}
	// The tokenisation branch speaks shorter leaf names than the others.
	achShortNames := [3]string{
		"for consumer checking",
		"for consumer savings",
		"for commercial checking",
	}

	savedMethodLeaves := func(suffix string) []MenuNode {
		leaves := make([]MenuNode, 0, len(methods))
		for _, pm := range methods {
			leaves = append(leaves, MenuNode{
				Name:     "for " + pm.Name,
				Enabled:  true,
				Redirect: appPath("/repeat_payment?payment_method=" + pm.ID + suffix),
			})
		}
		return leaves
	}

	menu := []MenuNode{
		{
			Name:    "for a new payment",
			Enabled: true,
			Children: []MenuNode{
				{Name: "for card",
					Enabled:  caps.Supports("VISA", shuttle.FeaturePayment),
					Redirect: appPath("/new_payment?type=CARD")},
				{Name: "for ACH",
					Enabled:  caps.Supports("ACH", shuttle.FeaturePayment),
					Children: achLeaves(achLongNames, "")},
				{Name: "to use a previously saved payment method",
					Enabled:  len(methods) > 0,
					Children: savedMethodLeaves("")},
				{Name: "to be sent a payment link and complete on your phone",
					Enabled:  caps.AnySupports(shuttle.FeaturePayment),
					Redirect: appPath("/payment_link")},
			},
		},
		{
			Name:    "for a new authorisation",
			Enabled: true,
			Children: []MenuNode{
				{Name: "for card",
					Enabled:  caps.Supports("VISA", shuttle.FeatureAuthorise),
					Redirect: appPath("/new_payment?type=CARD&action=AUTH")},
				{Name: "to use a previously saved payment method",
					Enabled:  len(methods) > 0,
					Children: savedMethodLeaves("&action=AUTH")},
				{Name: "to be sent a payment link and complete on your phone",
					Enabled:  caps.AnySupports(shuttle.FeatureAuthorise),
					Redirect: appPath("/payment_link?action=AUTH")},
			},
		},
		{
			Name:    "for a new payment with tokenisation",
			Enabled: true,
			Children: []MenuNode{
				{Name: "for card",
					Enabled:  caps.Supports("VISA", shuttle.FeaturePaymentAndSaveToken),
					Redirect: appPath("/new_payment?type=CARD&save=Y")},
				{Name: "for ACH",
					Enabled:  caps.Supports("ACH", shuttle.FeaturePaymentAndSaveToken),
					Children: achLeaves(achShortNames, "&save=Y")},
				{Name: "to be sent a payment link and complete on your phone",
					Enabled:  caps.AnySupports(shuttle.FeaturePaymentAndSaveToken),
					Redirect: appPath("/payment_link?save=Y")},
			},
		},
		{
			Name:    "to tokenise a payment method",
			Enabled: true,
			Children: []MenuNode{
				{Name: "for card",
					Enabled:  caps.Supports("VISA", shuttle.FeatureSaveCard),
					Redirect: appPath("/new_payment?type=CARD&action=TOKENISE")},
				{Name: "for ACH",
					Enabled:  caps.Supports("ACH", shuttle.FeatureSaveCard),
					Children: achLeaves(achLongNames, "&action=TOKENISE")},
				{Name: "to be sent a payment link and complete on your phone",
					Enabled:  caps.AnySupports(shuttle.FeatureSaveCard),
					Redirect: appPath("/payment_link?action=TOKENISE")},
			},
		},
		{
			Name:    "to delete a previously tokenised payment method",
			Enabled: len(methods) > 0,
			Children: func() []MenuNode {
				leaves := make([]MenuNode, 0, len(methods))
				for _, pm := range methods {
					leaves = append(leaves, MenuNode{
						Name:     pm.Name,
						Enabled:  true,
						Redirect: appPath("/payment_method/" + pm.ID + "/delete"),
					})
				}
				return leaves
			}(),
		},
	}

	return Prune(menu)
}

// Prune drops disabled nodes, then drops any node left with no children and
// no redirect. Depth-first so that emptied parents are removed after their
// children are evaluated. Pruning an already-pruned tree is a no-op.
func Prune(nodes []MenuNode) []MenuNode {
	var out []MenuNode
	for _, n := range nodes {
		if !n.Enabled {
			continue
		}
		n.Children = Prune(n.Children)
		if len(n.Children) == 0 && n.Redirect == "" {
			continue
		}
		out = append(out, n)
	}
	return out
}

// Resolve walks path into the tree, descending into the indexed node's
// children at each step. Any out-of-range index, or an index into a node
// without children, fails with ErrInvalidNavigation. An empty resolved menu
// also fails; there is nothing to offer the caller.
func Resolve(nodes []MenuNode, path []int) ([]MenuNode, error) {
	for _, idx := range path {
		if idx < 0 || idx >= len(nodes) {
			return nil, ErrInvalidNavigation
		}
		if len(nodes[idx].Children) == 0 {
			return nil, ErrInvalidNavigation
		}
		nodes = nodes[idx].Children
	}
	if len(nodes) == 0 {
		return nil, ErrInvalidNavigation
	}
	return nodes, nil
}

// ParseChoicePath decodes the comma-joined index list round-tripped through
// the provider in the choice query parameter.
func ParseChoicePath(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	path := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return nil, ErrInvalidNavigation
		}
		path = append(path, n)
	}
	return path, nil
}

// FormatChoicePath is the inverse of ParseChoicePath.
func FormatChoicePath(path []int) string {
	if len(path) == 0 {
		return ""
	}
	parts := make([]string, len(path))
	for i, n := range path {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}
