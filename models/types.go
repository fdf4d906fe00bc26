// Copyright (c) 2025 Lodestar App.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Goal type constants
const (
	TypeSavings  = "savings"
	TypePurchase = "purchase"
	TypeHabit    = "habit"
)

// Goal status constants
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusArchived  = "archived"
)

// Contribution source constants
const (
	SourceManual = "manual"
	SourceChat   = "chat"
	SourcePlaid  = "plaid"
)

// Chat role constants
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Scrape job status constants
const (
	JobPending = "pending"
	JobRunning = "running"
	JobDone    = "done"
	JobError   = "error"
)

// Request types

type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type CreateGoalRequest struct {
	Type            string            `json:"type"`
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	ParentID        string            `json:"parent_id"`
	TargetAmount    string            `json:"target_amount"`
	TargetDate      string            `json:"target_date"` // YYYY-MM-DD
	SearchQuery     string            `json:"search_query"`
	Cadence         string            `json:"cadence"`
	LinkedAccountID string            `json:"linked_account_id"`
	Filters         map[string]string `json:"filters"`
	Tasks           []string          `json:"tasks"`
}

// UpdateGoalRequest uses pointers so absent fields are left untouched.
type UpdateGoalRequest struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	TargetAmount *string `json:"target_amount"`
	TargetDate   *string `json:"target_date"`
	SearchQuery  *string `json:"search_query"`
	Cadence      *string `json:"cadence"`
}

type ContributionRequest struct {
	Amount string `json:"amount"`
	Note   string `json:"note"`
}

type UpdateFiltersRequest struct {
	Filters map[string]string `json:"filters"`
	Merge   bool              `json:"merge"`
}

type AddTaskRequest struct {
	Title string `json:"title"`
}

type ChatRequest struct {
	Message string `json:"message"`
}

type ExchangeTokenRequest struct {
	PublicToken string `json:"public_token"`
	Institution string `json:"institution"`
}

type SearchRequest struct {
	Retailers []string `json:"retailers"`
}

// WorkerCallbackRequest is what an external scrape worker posts back.
// Shape matches the worker protocol: jobId, status, optional error, data.
type WorkerCallbackRequest struct {
	JobID  string          `json:"jobId"`
	Status string          `json:"status"`
	Error  string          `json:"error"`
	Data   []WorkerListing `json:"data"`
}

type WorkerListing struct {
	Title string `json:"title"`
	Price string `json:"price"`
	URL   string `json:"url"`
}

// Response types

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type CreateGoalResponse struct {
	GoalID string `json:"goal_id"`
}

type ChatResponse struct {
	Reply        string          `json:"reply"`
	Results      []CommandResult `json:"results,omitempty"`
	CommandError string          `json:"command_error,omitempty"`
}

type LinkTokenResponse struct {
	LinkToken string `json:"link_token"`
}

type ExchangeTokenResponse struct {
	ItemID   string        `json:"item_id"`
	Accounts []BankAccount `json:"accounts"`
}

type SearchResponse struct {
	JobIDs []string `json:"job_ids"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Domain types

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose in JSON
	DisplayName  *string   `json:"display_name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type Goal struct {
	ID              string           `json:"id"`
	UserID          string           `json:"-"`
	ParentID        *string          `json:"parent_id,omitempty"`
	Type            string           `json:"type"`
	Title           string           `json:"title"`
	Description     *string          `json:"description,omitempty"`
	Status          string           `json:"status"`
	TargetAmount    *decimal.Decimal `json:"target_amount,omitempty"`
	CurrentAmount   decimal.Decimal  `json:"current_amount"`
	TargetDate      *time.Time       `json:"target_date,omitempty"`
	SearchQuery     *string          `json:"search_query,omitempty"`
	Cadence         *string          `json:"cadence,omitempty"`
	LinkedAccountID *string          `json:"linked_account_id,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
	ArchivedAt      *time.Time       `json:"archived_at,omitempty"`
}

type GoalDetail struct {
	Goal          Goal              `json:"goal"`
	Filters       map[string]string `json:"filters,omitempty"`
	Tasks         []Task            `json:"tasks"`
	Contributions []Contribution    `json:"contributions"`
	Subgoals      []Goal            `json:"subgoals,omitempty"`
}

type Task struct {
	ID          string     `json:"id"`
	GoalID      string     `json:"goal_id"`
	Title       string     `json:"title"`
	Done        bool       `json:"done"`
	Position    int        `json:"position"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type Contribution struct {
	ID        string          `json:"id"`
	GoalID    string          `json:"goal_id"`
	Amount    decimal.Decimal `json:"amount"`
	Note      *string         `json:"note,omitempty"`
	Source    string          `json:"source"`
	CreatedAt time.Time       `json:"created_at"`
}

type ChatMessage struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type BankAccount struct {
	ID        string          `json:"id"`
	AccountID string          `json:"account_id"`
	Name      string          `json:"name"`
	Mask      *string         `json:"mask,omitempty"`
	Type      *string         `json:"type,omitempty"`
	Balance   decimal.Decimal `json:"balance"`
	SyncedAt  time.Time       `json:"synced_at"`
}

type ScrapeJob struct {
	ID          string     `json:"id"`
	GoalID      string     `json:"goal_id"`
	UserID      string     `json:"-"`
	Retailer    string     `json:"retailer"`
	Query       string     `json:"query"`
	Status      string     `json:"status"`
	Error       *string    `json:"error,omitempty"`
	RequestedAt time.Time  `json:"requested_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

type Listing struct {
	ID        string           `json:"id"`
	JobID     string           `json:"job_id"`
	GoalID    string           `json:"goal_id"`
	Title     string           `json:"title"`
	Price     *decimal.Decimal `json:"price,omitempty"`
	URL       *string          `json:"url,omitempty"`
	Source    string           `json:"source"`
	ScrapedAt time.Time        `json:"scraped_at"`
}
