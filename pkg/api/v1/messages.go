package apiv1

// User is an account as seen by its owner.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Tier        string `json:"tier"`
	CreatedAt   int64  `json:"createdAt"`
}

// Participant is a person on a bill.
type Participant struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// Share assigns part of a product to a participant. An empty share means 100.
type Share struct {
	ParticipantID string `json:"participantId"`
	Share         string `json:"share,omitempty"`
}

// Product is a line item.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Price       string  `json:"price"`
	Quantity    int64   `json:"quantity"`
	LineCost    string  `json:"lineCost"`
	Allocations []Share `json:"allocations"`
}

// Bill is a bill with everything it owns. List responses leave
// Participants and Products empty.
type Bill struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Description  string        `json:"description,omitempty"`
	StatedTotal  string        `json:"statedTotal"`
	Revision     int64         `json:"revision"`
	Participants []Participant `json:"participants,omitempty"`
	Products     []Product     `json:"products,omitempty"`
	CreatedAt    int64         `json:"createdAt"`
	UpdatedAt    int64         `json:"updatedAt"`
}

// ItemShare is one participant's part of one product.
type ItemShare struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	Amount      string `json:"amount"`
}

// ParticipantSummary is what one participant owes.
type ParticipantSummary struct {
	ParticipantID string      `json:"participantId"`
	Name          string      `json:"name"`
	Color         string      `json:"color,omitempty"`
	Owed          string      `json:"owed"`
	Items         []ItemShare `json:"items"`
}

// Reconciliation compares product totals with what was allocated.
type Reconciliation struct {
	StatedTotal      string `json:"statedTotal"`
	ComputedTotal    string `json:"computedTotal"`
	AllocatedTotal   string `json:"allocatedTotal"`
	OrphanedAmount   string `json:"orphanedAmount"`
	StatedDifference string `json:"statedDifference"`
	Balanced         bool   `json:"balanced"`
	MatchesStated    bool   `json:"matchesStated"`
}

// OrphanedProduct is a product whose cost nobody owes.
type OrphanedProduct struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Amount    string `json:"amount"`
	Reason    string `json:"reason"`
}

// Summary is the per-participant result for a bill.
type Summary struct {
	BillID         string               `json:"billId"`
	Revision       int64                `json:"revision"`
	Participants   []ParticipantSummary `json:"participants"`
	Reconciliation Reconciliation       `json:"reconciliation"`
	Orphaned       []OrphanedProduct    `json:"orphaned"`
}

// TemplateParticipant is one entry of a template.
type TemplateParticipant struct {
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// Template is a reusable participant list.
type Template struct {
	ID           string                `json:"id"`
	Name         string                `json:"name"`
	Participants []TemplateParticipant `json:"participants"`
	CreatedAt    int64                 `json:"createdAt"`
}

// Quotas are per-tier ceilings. -1 means unlimited.
type Quotas struct {
	BillsPerMonth       int `json:"billsPerMonth"`
	ParticipantsPerBill int `json:"participantsPerBill"`
	Templates           int `json:"templates"`
}

// Subscription is the caller's billing state.
type Subscription struct {
	Status            string `json:"status"`
	PlanTier          string `json:"planTier"`
	EffectiveTier     string `json:"effectiveTier"`
	CurrentPeriodEnd  int64  `json:"currentPeriodEnd,omitempty"`
	CancelAtPeriodEnd bool   `json:"cancelAtPeriodEnd"`
}

// AccountService messages.

type RegisterRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Password    string `json:"password"`
}

type RegisterResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type LogoutRequest struct{}

type LogoutResponse struct{}

type GetCurrentUserRequest struct{}

type GetCurrentUserResponse struct {
	User *User `json:"user"`
}

type GetUsageRequest struct{}

type GetUsageResponse struct {
	Tier            string `json:"tier"`
	Quotas          Quotas `json:"quotas"`
	BillsThisPeriod int    `json:"billsThisPeriod"`
	Templates       int    `json:"templates"`
	PeriodStart     int64  `json:"periodStart"`
}

type GetSubscriptionRequest struct{}

type GetSubscriptionResponse struct {
	Subscription *Subscription `json:"subscription"`
}

// BillService messages.

// CreateBillRequest creates a bill. Participants come from TemplateID when
// it is set, otherwise from ParticipantNames.
type CreateBillRequest struct {
	Title            string   `json:"title"`
	Description      string   `json:"description,omitempty"`
	StatedTotal      string   `json:"statedTotal,omitempty"`
	ParticipantNames []string `json:"participantNames,omitempty"`
	TemplateID       string   `json:"templateId,omitempty"`
}

type CreateBillResponse struct {
	Bill *Bill `json:"bill"`
}

type GetBillRequest struct {
	BillID string `json:"billId"`
}

type GetBillResponse struct {
	Bill *Bill `json:"bill"`
}

type ListBillsRequest struct{}

type ListBillsResponse struct {
	Bills []*Bill `json:"bills"`
}

type UpdateBillRequest struct {
	BillID      string `json:"billId"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	StatedTotal string `json:"statedTotal,omitempty"`
}

type UpdateBillResponse struct {
	Bill *Bill `json:"bill"`
}

type DeleteBillRequest struct {
	BillID string `json:"billId"`
}

type DeleteBillResponse struct{}

type AddParticipantRequest struct {
	BillID string `json:"billId"`
	Name   string `json:"name"`
	Color  string `json:"color,omitempty"`
}

type AddParticipantResponse struct {
	Participant *Participant `json:"participant"`
}

type UpdateParticipantRequest struct {
	BillID        string `json:"billId"`
	ParticipantID string `json:"participantId"`
	Name          string `json:"name"`
	Color         string `json:"color,omitempty"`
}

type UpdateParticipantResponse struct {
	Participant *Participant `json:"participant"`
}

type RemoveParticipantRequest struct {
	BillID        string `json:"billId"`
	ParticipantID string `json:"participantId"`
}

type RemoveParticipantResponse struct{}

// AddProductRequest adds a line item. Without Shares, every participant in
// ParticipantIDs gets an equal share of 100/N. With neither, the product is
// left unallocated and reported as orphaned. Quantity defaults to 1.
type AddProductRequest struct {
	BillID         string   `json:"billId"`
	Name           string   `json:"name"`
	Price          string   `json:"price"`
	Quantity       int64    `json:"quantity,omitempty"`
	ParticipantIDs []string `json:"participantIds,omitempty"`
	Shares         []Share  `json:"shares,omitempty"`
}

type AddProductResponse struct {
	Product *Product `json:"product"`
}

type UpdateProductRequest struct {
	BillID    string `json:"billId"`
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	Quantity  int64  `json:"quantity,omitempty"`
}

type UpdateProductResponse struct {
	Product *Product `json:"product"`
}

type DeleteProductRequest struct {
	BillID    string `json:"billId"`
	ProductID string `json:"productId"`
}

type DeleteProductResponse struct{}

type SetAllocationsRequest struct {
	BillID    string  `json:"billId"`
	ProductID string  `json:"productId"`
	Shares    []Share `json:"shares"`
}

type SetAllocationsResponse struct {
	Product *Product `json:"product"`
}

type GetBillSummaryRequest struct {
	BillID string `json:"billId"`
}

type GetBillSummaryResponse struct {
	Summary *Summary `json:"summary"`
}

// TemplateService messages.

type CreateTemplateRequest struct {
	Name         string                `json:"name"`
	Participants []TemplateParticipant `json:"participants"`
}

type CreateTemplateResponse struct {
	Template *Template `json:"template"`
}

type ListTemplatesRequest struct{}

type ListTemplatesResponse struct {
	Templates []*Template `json:"templates"`
}

type DeleteTemplateRequest struct {
	TemplateID string `json:"templateId"`
}

type DeleteTemplateResponse struct{}
