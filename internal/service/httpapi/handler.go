// Пакет httpapi реализует HTTP-поверхность сервиса: storefront-эндпоинты
// предложений и приёмник уведомлений платёжного шлюза.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/deals/internal/domain"
	"github.com/vladislavdragonenkov/deals/internal/gateway"
	"github.com/vladislavdragonenkov/deals/internal/service/lifecycle"
)

// notifyAck — тело подтверждения, которое шлюз ждёт на каждое уведомление.
const notifyAck = "OK"

// Handler обслуживает HTTP API сервиса предложений.
type Handler struct {
	lifecycle  *lifecycle.Service
	gatewayCfg gateway.Config
	logger     *log.Entry
}

// NewHandler создаёт HTTP-обработчик.
func NewHandler(svc *lifecycle.Service, gatewayCfg gateway.Config, logger *log.Entry) *Handler {
	if logger == nil {
		logger = log.WithField("component", "http-api")
	}
	return &Handler{
		lifecycle:  svc,
		gatewayCfg: gatewayCfg,
		logger:     logger,
	}
}

// Routes регистрирует маршруты API на mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/deals", h.createDeal)
	mux.HandleFunc("GET /api/deals/{token}", h.getDeal)
	mux.HandleFunc("POST /api/deals/{token}/accept", h.acceptDeal)
	mux.HandleFunc("POST /api/gateway/notify", h.notify)
}

type createDealRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int32  `json:"quantity"`
}

type buyerPayload struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

type addressPayload struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	Region     string `json:"region"`
	PostalCode string `json:"postal_code"`
}

type acceptDealRequest struct {
	Buyer   buyerPayload   `json:"buyer"`
	Address addressPayload `json:"address"`
}

type dealResponse struct {
	Token            string    `json:"token"`
	ProductID        string    `json:"product_id"`
	SKU              string    `json:"sku"`
	ProductName      string    `json:"product_name"`
	OfferPriceMinor  int64     `json:"offer_price_minor"`
	Quantity         int32     `json:"quantity"`
	ShippingFeeMinor int64     `json:"shipping_fee_minor"`
	GrossMinor       int64     `json:"gross_minor"`
	Status           string    `json:"status"`
	ExpiresAt        time.Time `json:"expires_at"`
}

type paymentField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type acceptDealResponse struct {
	Deal    dealResponse `json:"deal"`
	Payment struct {
		ProcessURL string         `json:"process_url"`
		Fields     []paymentField `json:"fields"`
		HTMLForm   string         `json:"html_form"`
	} `json:"payment"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) createDeal(w http.ResponseWriter, r *http.Request) {
	var req createDealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	deal, err := h.lifecycle.Create(r.Context(), req.ProductID, req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrProductRequired), errors.Is(err, domain.ErrQuantityInvalid):
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrProductUnavailable):
			h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, domain.ErrDealExists):
			h.writeError(w, http.StatusConflict, err.Error())
		default:
			h.logger.WithError(err).Error("create deal failed")
			h.writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, toDealResponse(deal))
}

func (h *Handler) getDeal(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")

	deal, err := h.lifecycle.Get(r.Context(), token)
	if err != nil {
		if errors.Is(err, domain.ErrDealNotFound) || errors.Is(err, domain.ErrTokenRequired) {
			h.writeError(w, http.StatusNotFound, "deal not found")
			return
		}
		h.logger.WithError(err).WithField("token", token).Error("get deal failed")
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if deal.Status == domain.DealStatusExpired {
		h.writeJSONStatus(w, http.StatusGone, toDealResponse(deal))
		return
	}

	h.writeJSON(w, http.StatusOK, toDealResponse(deal))
}

func (h *Handler) acceptDeal(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")

	var req acceptDealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	buyer := domain.Buyer{
		FirstName: req.Buyer.FirstName,
		LastName:  req.Buyer.LastName,
		Email:     req.Buyer.Email,
		Phone:     req.Buyer.Phone,
	}
	address := domain.Address{
		Line1:      req.Address.Line1,
		Line2:      req.Address.Line2,
		City:       req.Address.City,
		Region:     req.Address.Region,
		PostalCode: req.Address.PostalCode,
	}

	deal, err := h.lifecycle.Accept(r.Context(), token, buyer, address)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrDealNotFound):
			h.writeError(w, http.StatusNotFound, "deal not found")
		case errors.Is(err, domain.ErrDealExpired):
			h.writeError(w, http.StatusGone, err.Error())
		case errors.Is(err, domain.ErrBuyerRequired), errors.Is(err, domain.ErrAddressRequired):
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrInsufficientStock), errors.Is(err, domain.ErrProductUnavailable):
			h.writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, domain.ErrInvalidTransition):
			h.writeError(w, http.StatusConflict, err.Error())
		default:
			h.logger.WithError(err).WithField("token", token).Error("accept deal failed")
			h.writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	paymentReq, err := gateway.BuildRequest(h.gatewayCfg, deal)
	if err != nil {
		h.logger.WithError(err).WithField("token", token).Error("build payment request failed")
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := acceptDealResponse{Deal: toDealResponse(deal)}
	resp.Payment.ProcessURL = paymentReq.ProcessURL
	resp.Payment.HTMLForm = paymentReq.HTMLForm()
	resp.Payment.Fields = make([]paymentField, 0, len(paymentReq.Fields))
	for _, f := range paymentReq.Fields {
		resp.Payment.Fields = append(resp.Payment.Fields, paymentField{Name: f.Name, Value: f.Value})
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// notify принимает асинхронное уведомление шлюза. Контракт:
// 400 только при структурно нечитаемом payload (нет корреляционного токена),
// во всех остальных случаях — 200 с коротким телом, какие бы ошибки
// ни случились внутри: шлюз повторяет всё, что не подтверждено.
func (h *Handler) notify(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	n, err := gateway.ParseNotification(r.PostForm, r.RemoteAddr)
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if err := h.lifecycle.ProcessNotification(r.Context(), n); err != nil {
		// Ошибка уже зафиксирована в журнале; шлюзу всегда отвечаем успехом.
		h.logger.WithError(err).WithField("token", n.Token).Warn("notification processing failed")
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(notifyAck))
}

func toDealResponse(deal domain.Deal) dealResponse {
	return dealResponse{
		Token:            deal.Token,
		ProductID:        deal.ProductID,
		SKU:              deal.SKU,
		ProductName:      deal.ProductName,
		OfferPriceMinor:  deal.OfferPriceMinor,
		Quantity:         deal.Quantity,
		ShippingFeeMinor: deal.ShippingFeeMinor,
		GrossMinor:       deal.GrossMinor(),
		Status:           string(deal.Status),
		ExpiresAt:        deal.ExpiresAt,
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	h.writeJSONStatus(w, status, payload)
}

func (h *Handler) writeJSONStatus(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.WithError(err).Error("encode response failed")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSONStatus(w, status, errorResponse{Error: message})
}
