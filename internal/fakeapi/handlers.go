package fakeapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"zg-client/internal/domain"
	"zg-client/internal/middleware"
	"zg-client/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

type Handler struct {
	service  *Service
	validate *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
	}
}

// decode reads a JSON body into req and validates it.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return false
	}
	return true
}

func userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(middleware.GetUserID(r), 10, 64)
	if err != nil {
		response.Unauthorized(w, "Invalid or expired token")
		return 0, false
	}
	return id, true
}

func fail(w http.ResponseWriter, err error) {
	var ruleErr *RuleError
	switch {
	case errors.Is(err, ErrInvalidInitData):
		response.Unauthorized(w, err.Error())
	case errors.As(err, &ruleErr):
		response.BadRequest(w, ruleErr.Error())
	default:
		log.Printf("[FakeAPI] internal error: %v", err)
		response.InternalError(w, err.Error())
	}
}

// Auth

func (h *Handler) AuthTelegram(w http.ResponseWriter, r *http.Request) {
	var req domain.AuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}

	resp, err := h.service.Authenticate(req.InitData)
	if err != nil {
		fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, resp)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	acc, err := h.service.Me(id)
	if err != nil {
		response.NotFound(w, err.Error())
		return
	}
	response.JSON(w, http.StatusOK, acc)
}

// Collectibles

func (h *Handler) ListNFTs(w http.ResponseWriter, r *http.Request) {
	response.Success(w, response.Fields{"nfts": h.service.ShopNFTs()})
}

func (h *Handler) MyNFTs(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	response.Success(w, response.Fields{"nfts": h.service.MyNFTs(id)})
}

func (h *Handler) BuyNFT(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	var req domain.NFTBuyRequest
	if !h.decode(w, r, &req) {
		return
	}

	balance, err := h.service.BuyNFT(id, req.NFTID)
	if err != nil {
		fail(w, err)
		return
	}
	response.Success(w, response.Fields{"message": "NFT purchased", "newBalance": balance})
}

func (h *Handler) PinNFT(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	var req domain.NFTActionRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.PinNFT(id, req.NFTID); err != nil {
		fail(w, err)
		return
	}
	response.Message(w, "NFT pinned")
}

func (h *Handler) SellNFT(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	var req domain.NFTActionRequest
	if !h.decode(w, r, &req) {
		return
	}

	refund, balance, err := h.service.SellNFT(id, req.NFTID)
	if err != nil {
		fail(w, err)
		return
	}
	response.Success(w, response.Fields{
		"message":    fmt.Sprintf("NFT sold for %d coins", refund),
		"newBalance": balance,
	})
}

func (h *Handler) TransferNFT(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	var req domain.TransferRequest
	if !h.decode(w, r, &req) {
		return
	}

	receiver, balance, err := h.service.TransferNFT(id, req.NFTID, req.ReceiverUsername)
	if err != nil {
		fail(w, err)
		return
	}
	response.Success(w, response.Fields{
		"message":    "NFT transferred to " + receiver,
		"newBalance": balance,
	})
}

// Auctions

func (h *Handler) CreateAuction(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	var req domain.AuctionCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}

	if err := h.service.CreateAuction(id, req.NFTID, req.Price); err != nil {
		fail(w, err)
		return
	}
	response.Message(w, "Auction created")
}

func (h *Handler) ListAuctions(w http.ResponseWriter, r *http.Request) {
	response.Success(w, response.Fields{"auctions": h.service.Auctions(0)})
}

func (h *Handler) MyAuctions(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	response.Success(w, response.Fields{"auctions": h.service.Auctions(id)})
}

func (h *Handler) BuyAuction(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	var req domain.AuctionActionRequest
	if !h.decode(w, r, &req) {
		return
	}

	balance, err := h.service.BuyAuction(id, req.AuctionID)
	if err != nil {
		fail(w, err)
		return
	}
	response.Success(w, response.Fields{"message": "Auction won", "newBalance": balance})
}

func (h *Handler) CancelAuction(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	var req domain.AuctionActionRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.CancelAuction(id, req.AuctionID); err != nil {
		fail(w, err)
		return
	}
	response.Message(w, "Auction canceled")
}

// Tasks, codes, stats

func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	response.Success(w, response.Fields{"tasks": h.service.Tasks(id)})
}

func (h *Handler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	var req domain.TaskCompleteRequest
	if !h.decode(w, r, &req) {
		return
	}

	reward, err := h.service.CompleteTask(id, req.TaskID)
	if err != nil {
		fail(w, err)
		return
	}
	response.Success(w, response.Fields{
		"message": fmt.Sprintf("Task completed! Received %d coins", reward),
		"reward":  reward,
	})
}

func (h *Handler) RedeemCode(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	var req domain.CodeRedeemRequest
	if !h.decode(w, r, &req) {
		return
	}

	reward, balance, err := h.service.RedeemCode(id, req.Code)
	if err != nil {
		fail(w, err)
		return
	}
	response.Success(w, response.Fields{
		"message":    fmt.Sprintf("Code activated! Received %d coins", reward),
		"reward":     reward,
		"newBalance": balance,
	})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	stats, err := h.service.Stats(id)
	if err != nil {
		fail(w, err)
		return
	}
	response.Success(w, response.Fields{
		"tasksCompleted": stats.TasksCompleted,
		"codesActivated": stats.CodesActivated,
	})
}

// Leaderboard and referrals

func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	response.Success(w, response.Fields{"users": h.service.Leaderboard()})
}

func (h *Handler) UserDetails(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid user id")
		return
	}
	details, err := h.service.UserDetails(id)
	if err != nil {
		fail(w, err)
		return
	}
	response.Success(w, response.Fields{"user": details.User, "nfts": details.NFTs})
}

func (h *Handler) ReferralLink(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	link, err := h.service.ReferralLink(id)
	if err != nil {
		fail(w, err)
		return
	}
	response.Success(w, response.Fields{"referralLink": link.Link, "referralCount": link.Count})
}

func (h *Handler) Referrals(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	refs, err := h.service.Referrals(id)
	if err != nil {
		fail(w, err)
		return
	}
	response.Success(w, response.Fields{"referrals": refs})
}

// Admin

func (h *Handler) AdminBalance(w http.ResponseWriter, r *http.Request) {
	var req domain.BalanceUpdateRequest
	if !h.decode(w, r, &req) {
		return
	}
	balance, err := h.service.SetBalance(req.Username, req.NewBalance)
	if err != nil {
		fail(w, err)
		return
	}
	response.Success(w, response.Fields{
		"message":    "Balance updated",
		"username":   req.Username,
		"newBalance": balance,
	})
}

func (h *Handler) AdminNFTs(w http.ResponseWriter, r *http.Request) {
	response.Success(w, response.Fields{"nfts": h.service.AllNFTs()})
}

func (h *Handler) AdminCreateNFT(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(domain.MaxImageSize + 1<<20); err != nil {
		response.BadRequest(w, "Invalid multipart form")
		return
	}

	price, err := strconv.ParseInt(r.FormValue("price"), 10, 64)
	if err != nil {
		response.BadRequest(w, "price must be a number")
		return
	}
	amount := 1
	if v := r.FormValue("amount"); v != "" {
		if amount, err = strconv.Atoi(v); err != nil {
			response.BadRequest(w, "amount must be a number")
			return
		}
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		response.BadRequest(w, "image file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, domain.MaxImageSize+1))
	if err != nil {
		response.BadRequest(w, "cannot read image")
		return
	}

	nfts, err := h.service.CreateNFT(domain.Collectible{
		Name:           r.FormValue("name"),
		Description:    r.FormValue("description"),
		Price:          price,
		GradientColor1: r.FormValue("gradientColor1"),
		GradientColor2: r.FormValue("gradientColor2"),
	}, amount, data)
	if err != nil {
		fail(w, err)
		return
	}
	response.Success(w, response.Fields{"nfts": nfts})
}

func (h *Handler) AdminDeleteNFT(w http.ResponseWriter, r *http.Request) {
	var req domain.DeleteRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.DeleteNFT(req.ID); err != nil {
		fail(w, err)
		return
	}
	response.Message(w, "NFT deleted")
}

func (h *Handler) AdminCodes(w http.ResponseWriter, r *http.Request) {
	response.Success(w, response.Fields{"codes": h.service.AllCodes()})
}

func (h *Handler) AdminCreateCode(w http.ResponseWriter, r *http.Request) {
	var req domain.CodeCreateRequest
	if !h.decode(w, r, &req) {
		return
	}
	code, err := h.service.CreateCode(req)
	if err != nil {
		fail(w, err)
		return
	}
	response.Success(w, response.Fields{"message": "Code created", "code": code})
}

func (h *Handler) AdminDeleteCode(w http.ResponseWriter, r *http.Request) {
	var req domain.DeleteRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.DeleteCode(req.ID); err != nil {
		fail(w, err)
		return
	}
	response.Message(w, "Code deleted")
}

func (h *Handler) AdminTasks(w http.ResponseWriter, r *http.Request) {
	response.Success(w, response.Fields{"tasks": h.service.AllTasks()})
}

func (h *Handler) AdminCreateTask(w http.ResponseWriter, r *http.Request) {
	var req domain.TaskCreateRequest
	if !h.decode(w, r, &req) {
		return
	}
	task := h.service.CreateTask(req)
	response.Success(w, response.Fields{"message": "Task created", "task": task})
}

func (h *Handler) AdminDeleteTask(w http.ResponseWriter, r *http.Request) {
	var req domain.DeleteRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.DeleteTask(req.ID); err != nil {
		fail(w, err)
		return
	}
	response.Message(w, "Task deleted")
}

func (h *Handler) Image(w http.ResponseWriter, r *http.Request) {
	contentType, data, ok := h.service.Image(mux.Vars(r)["name"])
	if !ok {
		response.NotFound(w, "image not found")
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(data)
}
