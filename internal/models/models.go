package models

// Timestamps are unix milliseconds (UTC).

const (
	RoleAdmin = "Admin"
	RoleGuest = "Guest"
	RoleUser  = "User"
)

const (
	AdminName        = "Admin"
	GuestName        = "Guest"
	DefaultAdminCode = "0000"
)

const (
	DefaultAssets = 5
	DefaultCredit = 100
)

type User struct {
	ID        int64   `db:"id" json:"id"`
	Name      string  `db:"name" json:"name"`
	Role      string  `db:"role" json:"role"`
	Code      string  `db:"code" json:"-"`
	IsActive  bool    `db:"is_active" json:"is_active"`
	CreatedAt int64   `db:"created_at" json:"created_at"`
	UpdatedAt int64   `db:"updated_at" json:"updated_at"`
	Icon      *string `db:"icon" json:"icon,omitempty"`
	Email     *string `db:"email" json:"email,omitempty"`
	Phone     *string `db:"phone" json:"phone,omitempty"`
}

func (u User) IsGuest() bool {
	return u.Role == RoleGuest
}

// Wallet.Assets is the only spendable balance. Credit is a separate figure
// that no transaction moves.
type Wallet struct {
	Owner  int64 `db:"owner" json:"owner"`
	Assets int64 `db:"assets" json:"assets"`
	Credit int64 `db:"credit" json:"credit"`
}

type LedgerEntry struct {
	ID               int64   `db:"id" json:"id"`
	UserID           int64   `db:"user_id" json:"user_id"`
	TransferID       string  `db:"transfer_id" json:"transfer_id"`
	Reason           string  `db:"reason" json:"reason"`
	Amount           int64   `db:"amount" json:"amount"`
	Counterparty     *int64  `db:"counterparty" json:"counterparty,omitempty"`
	CounterpartyName *string `db:"counterparty_name" json:"counterparty_name,omitempty"`
	Timestamp        int64   `db:"timestamp" json:"timestamp"`
	Balance          int64   `db:"balance" json:"balance"`
}

type EventType struct {
	Name           string `db:"name" json:"name"`
	Owner          *int64 `db:"owner" json:"owner,omitempty"`
	Icon           string `db:"icon" json:"icon"`
	IconColor      string `db:"iconColor" json:"iconColor"`
	Availability   int64  `db:"availability" json:"availability"`
	Weight         int64  `db:"weight" json:"weight"`
	ExpirationDate *int64 `db:"expiration_date" json:"expiration_date,omitempty"`
	CreatedAt      int64  `db:"created_at" json:"created_at"`
}

type Event struct {
	ID         int64   `db:"id" json:"id"`
	EventType  string  `db:"eventType" json:"eventType"`
	Owner      *int64  `db:"owner" json:"owner,omitempty"`
	Note       *string `db:"note" json:"note,omitempty"`
	PhotoPath  *string `db:"photoPath" json:"photoPath,omitempty"`
	CreatedBy  int64   `db:"created_by" json:"created_by"`
	CreatedAt  int64   `db:"created_at" json:"created_at"`
	IsVerified bool    `db:"is_verified" json:"is_verified"`
	VerifiedAt *int64  `db:"verified_at" json:"verified_at,omitempty"`
	VerifiedBy *int64  `db:"verified_by" json:"verified_by,omitempty"`
}

type Product struct {
	ID          int64  `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description"`
	Images      string `db:"images" json:"images"`
	Price       int64  `db:"price" json:"price"`
	Quantity    int64  `db:"quantity" json:"quantity"`
	Creator     int64  `db:"creator" json:"creator"`
	Online      bool   `db:"online" json:"online"`
	CreatedAt   int64  `db:"created_at" json:"created_at"`
	UpdatedAt   int64  `db:"updated_at" json:"updated_at"`
}

type ProductImage struct {
	ID       int64 `db:"id" json:"id"`
	Referred int64 `db:"referred" json:"referred"`
}

type PurchaseStatus string

const (
	PurchasePending   PurchaseStatus = "pending"
	PurchaseFulfilled PurchaseStatus = "fulfilled"
	PurchaseCanceled  PurchaseStatus = "canceled"
)

// Purchase rows snapshot the product at purchase time. Canceled rows keep
// quantity 0 as well as status canceled.
type Purchase struct {
	OrderNumber int64          `db:"order_number" json:"order_number"`
	ProductID   int64          `db:"product_id" json:"product_id"`
	Owner       int64          `db:"owner" json:"owner"`
	Seller      int64          `db:"seller" json:"seller"`
	Name        string         `db:"name" json:"name"`
	Description string         `db:"description" json:"description"`
	Images      string         `db:"images" json:"images"`
	Price       int64          `db:"price" json:"price"`
	Quantity    int64          `db:"quantity" json:"quantity"`
	Status      PurchaseStatus `db:"status" json:"status"`
	CreatedAt   int64          `db:"createdAt" json:"createdAt"`
	FulfilledAt *int64         `db:"fulfilledAt" json:"fulfilledAt,omitempty"`
	FulfilledBy *int64         `db:"fulfilledBy" json:"fulfilledBy,omitempty"`
	CanceledAt  *int64         `db:"canceledAt" json:"canceledAt,omitempty"`
	CanceledBy  *int64         `db:"canceledBy" json:"canceledBy,omitempty"`
}

func (p Purchase) Total() int64 {
	return p.Price * p.Quantity
}
