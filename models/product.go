package models

// CurrencyStars is the Telegram Stars currency code. Invoices in this
// currency are sent with an empty provider token.
const CurrencyStars = "XTR"

// ProductID identifies the single item the bot sells.
const ProductID = "gamebooster"

// Product is the static catalogue entry. It is built once from config and
// never mutated afterwards.
type Product struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Price        int64  `json:"price"`
	CurrencyCode string `json:"currency_code"`
	DeliveryURL  string `json:"delivery_url"`
}

const (
	productTitle       = "GAMEBooster — Оптимизатор ПК"
	productDescription = "Мгновенная доставка. Разгони свой ПК и увеличь FPS в играх!"
)

// NewProduct returns the catalogue entry priced in Stars.
func NewProduct(price int64, deliveryURL string) Product {
	return Product{
		Title:        productTitle,
		Description:  productDescription,
		Price:        price,
		CurrencyCode: CurrencyStars,
		DeliveryURL:  deliveryURL,
	}
}
