package engine

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Suit identifies one of the four French suits. The zero value NoSuit marks an
// unclaimed foundation.
type Suit uint8

const (
	NoSuit Suit = iota
	Spades
	Hearts
	Diamonds
	Clubs
)

// Rank constants (1=Ace ... 13=King)
const (
	Ace   = 1
	Jack  = 11
	Queen = 12
	King  = 13

	NumSuits       = 4
	NumRanks       = 13
	DeckSize       = NumSuits * NumRanks
	NumFoundations = 4
	NumTableaus    = 7
	NumPiles       = 2 + NumFoundations + NumTableaus

	DrawCount        = 3
	DefaultMaxUndo   = 20
	InitialStockSize = DeckSize - (NumTableaus*(NumTableaus+1))/2
)

// Scoring constants
const (
	FlipPoints       = 5
	FoundationPoints = 10
	UndoPenalty      = 15
	WinBonusBase     = 10000
	WinBonusPerSec   = 2
)

// AllSuits lists the suits in canonical deck order.
var AllSuits = [NumSuits]Suit{Spades, Hearts, Diamonds, Clubs}

var suitNames = map[Suit]string{
	NoSuit:   "",
	Spades:   "spades",
	Hearts:   "hearts",
	Diamonds: "diamonds",
	Clubs:    "clubs",
}

var suitSymbols = map[Suit]string{
	Spades:   "♠",
	Hearts:   "♥",
	Diamonds: "♦",
	Clubs:    "♣",
}

// String returns the lower-case suit name
func (s Suit) String() string {
	if name, ok := suitNames[s]; ok {
		return name
	}
	return fmt.Sprintf("suit(%d)", uint8(s))
}

// Symbol returns the unicode pip for the suit
func (s Suit) Symbol() string {
	return suitSymbols[s]
}

// IsRed reports whether the suit is hearts or diamonds
func (s Suit) IsRed() bool {
	return s == Hearts || s == Diamonds
}

// Valid reports whether s is one of the four real suits
func (s Suit) Valid() bool {
	return s >= Spades && s <= Clubs
}

func (s Suit) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Suit) UnmarshalText(text []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(text)))
	for suit, n := range suitNames {
		if n == name {
			*s = suit
			return nil
		}
	}
	return fmt.Errorf("unknown suit %q", string(text))
}

// Color of a card
type Color string

const (
	Red   Color = "red"
	Black Color = "black"
)

// Card is an immutable rank/suit pair with a mutable face orientation.
// Cards are plain values so piles and snapshots can copy them freely.
type Card struct {
	Suit   Suit `json:"suit"`
	Rank   int  `json:"rank"`
	FaceUp bool `json:"face_up"`
}

// NewCard creates a face-down card
func NewCard(suit Suit, rank int) Card {
	return Card{Suit: suit, Rank: rank}
}

// IsRed reports whether the card is a heart or diamond
func (c Card) IsRed() bool {
	return c.Suit.IsRed()
}

// Color returns the derived card color
func (c Card) Color() Color {
	if c.IsRed() {
		return Red
	}
	return Black
}

// SameIdentity compares suit and rank, ignoring orientation
func (c Card) SameIdentity(other Card) bool {
	return c.Suit == other.Suit && c.Rank == other.Rank
}

// RankString returns A, 2..10, J, Q or K
func (c Card) RankString() string {
	switch c.Rank {
	case Ace:
		return "A"
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	default:
		return strconv.Itoa(c.Rank)
	}
}

// String renders the card as rank followed by suit symbol, e.g. "10♥"
func (c Card) String() string {
	return c.RankString() + c.Suit.Symbol()
}

// key packs suit and rank into a small integer used for duplicate detection
func (c Card) key() int {
	return int(c.Suit)*16 + c.Rank
}

// PileKind represents the four pile variants
type PileKind string

const (
	KindStock      PileKind = "stock"
	KindWaste      PileKind = "waste"
	KindFoundation PileKind = "foundation"
	KindTableau    PileKind = "tableau"
)

// PileID indexes the flat pile arena: 0 stock, 1 waste, 2..5 foundations,
// 6..12 tableau columns.
type PileID int

const (
	StockPile       PileID = 0
	WastePile       PileID = 1
	firstFoundation PileID = 2
	firstTableau    PileID = firstFoundation + NumFoundations
)

// Foundation returns the id of foundation i (0..3)
func Foundation(i int) PileID {
	return firstFoundation + PileID(i)
}

// Tableau returns the id of tableau column i (0..6)
func Tableau(i int) PileID {
	return firstTableau + PileID(i)
}

// Valid reports whether id addresses one of the 13 piles
func (id PileID) Valid() bool {
	return id >= 0 && id < NumPiles
}

// Kind returns the pile variant for the id
func (id PileID) Kind() PileKind {
	switch {
	case id == StockPile:
		return KindStock
	case id == WastePile:
		return KindWaste
	case id >= firstFoundation && id < firstTableau:
		return KindFoundation
	default:
		return KindTableau
	}
}

// Index returns the position of the pile within its kind
func (id PileID) Index() int {
	switch id.Kind() {
	case KindFoundation:
		return int(id - firstFoundation)
	case KindTableau:
		return int(id - firstTableau)
	default:
		return 0
	}
}

func (id PileID) String() string {
	if !id.Valid() {
		return fmt.Sprintf("pile(%d)", int(id))
	}
	switch id.Kind() {
	case KindFoundation, KindTableau:
		return fmt.Sprintf("%s-%d", id.Kind(), id.Index())
	default:
		return string(id.Kind())
	}
}

// ParsePileID accepts "stock", "waste", "foundation-N" and "tableau-N"
// (a colon separator and 0-based indexes are also accepted).
func ParsePileID(s string) (PileID, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "stock":
		return StockPile, nil
	case "waste":
		return WastePile, nil
	}

	sep := strings.IndexAny(name, "-:")
	if sep < 0 {
		return 0, fmt.Errorf("%w: %q", ErrUnknownPile, s)
	}
	kind, idxStr := name[:sep], name[sep+1:]
	idx, err := strconv.Atoi(idxStr)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownPile, s)
	}

	switch PileKind(kind) {
	case KindFoundation:
		if idx >= 0 && idx < NumFoundations {
			return Foundation(idx), nil
		}
	case KindTableau:
		if idx >= 0 && idx < NumTableaus {
			return Tableau(idx), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPile, s)
}

func (id PileID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *PileID) UnmarshalText(text []byte) error {
	parsed, err := ParsePileID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Status is the game lifecycle state
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusDealing    Status = "dealing"
	StatusInProgress Status = "in_progress"
	StatusWon        Status = "won"
	StatusStalled    Status = "stalled"
)

// Terminal reports whether the game has ended
func (s Status) Terminal() bool {
	return s == StatusWon || s == StatusStalled
}

// RejectReason explains why a move was refused. The empty string means the
// move is legal.
type RejectReason string

const (
	ReasonNone              RejectReason = ""
	ReasonEmptySelection    RejectReason = "empty_selection"
	ReasonWrongRank         RejectReason = "wrong_rank"
	ReasonWrongColor        RejectReason = "wrong_color"
	ReasonWrongSuit         RejectReason = "wrong_suit"
	ReasonMultiToFoundation RejectReason = "multi_card_to_foundation"
	ReasonTargetFaceDown    RejectReason = "target_face_down"
	ReasonBrokenRun         RejectReason = "broken_run"
	ReasonFaceDownCard      RejectReason = "face_down_card"
	ReasonNotTopCard        RejectReason = "not_top_card"
	ReasonInvalidSource     RejectReason = "invalid_source"
	ReasonInvalidTarget     RejectReason = "invalid_target"
	ReasonSamePile          RejectReason = "same_pile"
	ReasonNotInProgress     RejectReason = "game_not_in_progress"
	ReasonNoFoundation      RejectReason = "no_foundation_accepts"
)

// MoveDescription describes a card move in user-facing terms
type MoveDescription struct {
	From  PileID `json:"from"`
	To    PileID `json:"to"`
	Card  Card   `json:"card"`
	Count int    `json:"count"`
	Text  string `json:"text"`
}

// MoveResult reports the outcome of AttemptMove
type MoveResult struct {
	Applied    bool            `json:"applied"`
	Reason     RejectReason    `json:"reason,omitempty"`
	Move       MoveDescription `json:"move"`
	Flipped    bool            `json:"flipped,omitempty"`
	ScoreDelta int             `json:"score_delta"`
	Status     Status          `json:"status"`
}

// DrawKind distinguishes the outcomes of DrawFromStock
type DrawKind string

const (
	DrawRevealed DrawKind = "cards_revealed"
	DrawRecycled DrawKind = "recycled"
	DrawNoop     DrawKind = "noop"
)

// DrawResult reports the outcome of DrawFromStock
type DrawResult struct {
	Kind     DrawKind     `json:"kind"`
	Cards    []Card       `json:"cards,omitempty"`
	Recycled int          `json:"recycled,omitempty"`
	Reason   RejectReason `json:"reason,omitempty"`
	Status   Status       `json:"status"`
}

// Stats are the cross-game counters round-tripped through settings
type Stats struct {
	GamesPlayed int `json:"games_played"`
	GamesWon    int `json:"games_won"`
}

// WinRate returns the integer win percentage
func (s Stats) WinRate() int {
	if s.GamesPlayed <= 0 {
		return 0
	}
	return s.GamesWon * 100 / s.GamesPlayed
}

// Action names recorded in the move log
const (
	ActionDraw         = "draw"
	ActionRecycle      = "recycle"
	ActionMove         = "move"
	ActionUndo         = "undo"
	ActionAutoComplete = "auto_complete"
)

// MoveRecord represents a single applied action in the game log
type MoveRecord struct {
	Number     int       `json:"number"`
	Action     string    `json:"action"`
	From       *PileID   `json:"from,omitempty"`
	To         *PileID   `json:"to,omitempty"`
	Cards      []Card    `json:"cards,omitempty"`
	ScoreAfter int       `json:"score_after"`
	Timestamp  time.Time `json:"timestamp"`
}
