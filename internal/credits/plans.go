package credits

import (
	"fmt"
	"net/url"
)

// DefaultCheckoutURL is the payment processor page the drawer links to.
const DefaultCheckoutURL = "https://stripe.com"

// DrawerTitle and DrawerDescription head the purchase drawer.
const (
	DrawerTitle       = "Clippy - Pro"
	DrawerDescription = "High quality 1080p exports Credits stack with existing balance • Credits never expire • 1 credit = 1 minute of 1080p processing"
	SecondaryAction   = "Maybe Later"
)

// Plan is a purchasable credit pack. Prices are in cents.
type Plan struct {
	ID            string `json:"id"`
	Credits       int    `json:"credits"`
	Price         int    `json:"price"`
	OriginalPrice int    `json:"original_price"`
	Discount      int    `json:"discount"`
	Popular       bool   `json:"popular,omitempty"`
}

// Plans lists the credit packs in display order.
var Plans = []Plan{
	{ID: "basic", Credits: 60, Price: 599, OriginalPrice: 599},
	{ID: "popular", Credits: 250, Price: 1499, OriginalPrice: 2495, Discount: 40, Popular: true},
	{ID: "premium", Credits: 600, Price: 2999, OriginalPrice: 5999, Discount: 50},
}

// Features are the selling points listed in the drawer.
var Features = []string{
	"High quality 1080p exports",
	"Credits stack with existing balance",
	"Credits never expire",
	"1 credit = 1 minute of 1080p processing",
}

// DefaultPlan returns the popular plan, or the first plan when none is marked popular.
func DefaultPlan() Plan {
	for _, p := range Plans {
		if p.Popular {
			return p
		}
	}
	return Plans[0]
}

// FindPlan returns the plan with id.
func FindPlan(id string) (Plan, bool) {
	for _, p := range Plans {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}

// FormatPrice renders cents as dollars, e.g. 1499 -> "$14.99".
func FormatPrice(cents int) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}

// PriceLabel is the display price.
func (p Plan) PriceLabel() string { return FormatPrice(p.Price) }

// OriginalPriceLabel is the struck-through price, empty when the plan has no discount.
func (p Plan) OriginalPriceLabel() string {
	if p.Discount <= 0 {
		return ""
	}
	return FormatPrice(p.OriginalPrice)
}

// DiscountLabel reads like "40% OFF", empty when the plan has no discount.
func (p Plan) DiscountLabel() string {
	if p.Discount <= 0 {
		return ""
	}
	return fmt.Sprintf("%d%% OFF", p.Discount)
}

// BuyLabel is the primary action text.
func (p Plan) BuyLabel() string {
	return fmt.Sprintf("Buy %d credits", p.Credits)
}

// CheckoutURL returns the outbound payment link for p. Nothing is charged by this program.
func CheckoutURL(base string, p Plan) string {
	if base == "" {
		base = DefaultCheckoutURL
	}
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		return base
	}
	q := u.Query()
	q.Set("plan", p.ID)
	q.Set("credits", fmt.Sprint(p.Credits))
	u.RawQuery = q.Encode()
	return u.String()
}
