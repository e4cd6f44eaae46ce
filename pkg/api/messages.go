package api

// User is the public view of a registered account.
type User struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	CreatedAt   int64  `json:"created_at,omitempty"`
}

type RegisterRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name,omitempty"`
}

type RegisterResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type GetCurrentUserRequest struct{}

type GetCurrentUserResponse struct {
	User *User `json:"user"`
}

type SearchUsersRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

type SearchUsersResponse struct {
	Users []*User `json:"users"`
}

// Group is a group with its members resolved to users.
type Group struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Currency  string  `json:"currency"`
	Members   []*User `json:"members"`
	CreatedBy string  `json:"created_by"`
	CreatedAt int64   `json:"created_at"`
}

type CreateGroupRequest struct {
	Name string `json:"name"`
	// Currency defaults to the server's default currency.
	Currency string `json:"currency,omitempty"`
	// MemberIDs are added alongside the caller, who is always a member.
	MemberIDs []string `json:"member_ids,omitempty"`
}

type CreateGroupResponse struct {
	Group *Group `json:"group"`
}

type GetGroupRequest struct {
	GroupID string `json:"group_id"`
}

type GetGroupResponse struct {
	Group    *Group     `json:"group"`
	Expenses []*Expense `json:"expenses"`
}

type ListGroupsRequest struct{}

type ListGroupsResponse struct {
	Groups []*Group `json:"groups"`
}

// AddMembersRequest adds users by ID or by username.
type AddMembersRequest struct {
	GroupID   string   `json:"group_id"`
	UserIDs   []string `json:"user_ids,omitempty"`
	Usernames []string `json:"usernames,omitempty"`
}

type AddMembersResponse struct {
	Group *Group `json:"group"`
}

// Window bounds expense reads by creation time, RFC 3339. Both ends optional.
type Window struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

type GetBalancesRequest struct {
	GroupID string `json:"group_id"`
	Window
}

type Balance struct {
	MemberID string `json:"member_id"`
	Username string `json:"username"`
	// Balance is positive when the member is owed money.
	Balance Amount `json:"balance"`
	Paid    Amount `json:"paid"`
	Owed    Amount `json:"owed"`
}

type GetBalancesResponse struct {
	GroupID  string     `json:"group_id"`
	Currency string     `json:"currency"`
	Balances []*Balance `json:"balances"`
}

type GetSettlementsRequest struct {
	GroupID string `json:"group_id"`
	Window
}

type Settlement struct {
	From         string `json:"from"`
	FromUsername string `json:"from_username"`
	To           string `json:"to"`
	ToUsername   string `json:"to_username"`
	Amount       Amount `json:"amount"`
}

type GetSettlementsResponse struct {
	GroupID     string        `json:"group_id"`
	Currency    string        `json:"currency"`
	Settlements []*Settlement `json:"settlements"`
}

type Split struct {
	ID         string `json:"id,omitempty"`
	UserOwedID string `json:"user_owed_id"`
	Username   string `json:"username,omitempty"`
	AmountOwed Amount `json:"amount_owed"`
}

type Expense struct {
	ID            string   `json:"id"`
	GroupID       string   `json:"group_id"`
	Description   string   `json:"description"`
	TotalAmount   Amount   `json:"total_amount"`
	Currency      string   `json:"currency"`
	PayerID       string   `json:"payer_id"`
	PayerUsername string   `json:"payer_username,omitempty"`
	SplitType     string   `json:"split_type"`
	Splits        []*Split `json:"splits"`
	CreatedBy     string   `json:"created_by"`
	// CreatedAt is RFC 3339.
	CreatedAt string `json:"created_at"`
}

// Item is a line item of an itemized expense.
type Item struct {
	Description string   `json:"description"`
	Amount      Amount   `json:"amount"`
	AssignedTo  []string `json:"assigned_to"`
}

type CreateExpenseRequest struct {
	GroupID     string `json:"group_id"`
	Description string `json:"description"`
	TotalAmount Amount `json:"total_amount"`
	// PayerID defaults to the caller.
	PayerID string `json:"payer_id,omitempty"`
	// SplitType is EVENLY, MANUALLY or ITEMIZED; "E", "M" and "I" are accepted.
	SplitType string   `json:"split_type,omitempty"`
	Splits    []*Split `json:"splits,omitempty"`
	// Items are used when SplitType is ITEMIZED.
	Items []*Item `json:"items,omitempty"`
}

type CreateExpenseResponse struct {
	Expense *Expense `json:"expense"`
}

type GetExpenseRequest struct {
	ExpenseID string `json:"expense_id"`
}

type GetExpenseResponse struct {
	Expense *Expense `json:"expense"`
}

type DeleteExpenseRequest struct {
	ExpenseID string `json:"expense_id"`
}

type DeleteExpenseResponse struct{}

type ListExpensesRequest struct {
	GroupID string `json:"group_id"`
	Window
}

type ListExpensesResponse struct {
	Expenses []*Expense `json:"expenses"`
}

type ParseReceiptRequest struct {
	// Image is base64 in JSON.
	Image    []byte `json:"image"`
	MimeType string `json:"mime_type"`
	// TargetCurrency converts every item when set.
	TargetCurrency string `json:"target_currency,omitempty"`
}

type ReceiptItem struct {
	Name     string `json:"item_name"`
	Price    Amount `json:"price"`
	Currency string `json:"currency"`
}

type ParseReceiptResponse struct {
	Items    []*ReceiptItem `json:"items"`
	Currency string         `json:"currency,omitempty"`
	Total    Amount         `json:"total,omitempty"`
}
