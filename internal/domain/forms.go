package domain

const (
	TransferFee       int64 = 100
	ReferralBonus     int64 = 300
	MaxImageSize            = 5 << 20
	SaleRefundPercent int64 = 75
)

var AllowedImageTypes = []string{"image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp"}

type NFTBuyRequest struct {
	NFTID int64 `json:"nftId" validate:"gt=0"`
}

type NFTActionRequest struct {
	NFTID            int64  `json:"nftId" validate:"gt=0"`
	ReceiverUsername string `json:"receiverUsername,omitempty"`
}

type TransferRequest struct {
	NFTID            int64  `json:"nftId" validate:"gt=0"`
	ReceiverUsername string `json:"receiverUsername" validate:"required"`
}

type AuctionCreateRequest struct {
	NFTID int64 `json:"nftId" validate:"gt=0"`
	Price int64 `json:"price" validate:"gt=0"`
}

type AuctionActionRequest struct {
	AuctionID int64 `json:"auctionId" validate:"gt=0"`
}

type TaskCompleteRequest struct {
	TaskID int64 `json:"taskId" validate:"gt=0"`
}

type CodeRedeemRequest struct {
	Code string `json:"code" validate:"required"`
}

type BalanceUpdateRequest struct {
	Username   string `json:"username" validate:"required"`
	NewBalance int64  `json:"newBalance" validate:"gte=0"`
}

type CodeCreateRequest struct {
	Code    string `json:"code,omitempty"`
	Reward  int64  `json:"reward" validate:"gt=0"`
	MaxUses int    `json:"maxUses" validate:"gt=0"`
}

type TaskCreateRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
	Link        string `json:"link" validate:"required"`
	Reward      int64  `json:"reward" validate:"gt=0"`
}

type DeleteRequest struct {
	ID int64 `json:"id" validate:"gt=0"`
}

// NFTCreateRequest is sent as multipart form data; Image is the file part.
type NFTCreateRequest struct {
	Name           string `validate:"required"`
	Description    string `validate:"required"`
	Price          int64  `validate:"gt=0"`
	GradientColor1 string `validate:"omitempty,hexcolor"`
	GradientColor2 string `validate:"omitempty,hexcolor"`
	Amount         int    `validate:"gte=0"`
	Image          *Upload
}

type Upload struct {
	FileName string
	Data     []byte
}

// Responses that carry more than the envelope.

type NFTBuyResponse struct {
	NewBalance int64 `json:"newBalance"`
}

type CodeRedeemResponse struct {
	Reward     int64 `json:"reward"`
	NewBalance int64 `json:"newBalance"`
}

type BalanceUpdateResponse struct {
	Username   string `json:"username"`
	NewBalance int64  `json:"newBalance"`
}

type CodeCreateResponse struct {
	Code Code `json:"code"`
}
