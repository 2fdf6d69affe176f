package service

import (
	"crypto/subtle"
	"strings"
	"time"

	"github.com/courtline/internal/constants"
	"github.com/courtline/internal/logger"
	"github.com/courtline/internal/metrics"
	"github.com/courtline/internal/models"
	"github.com/courtline/internal/repository"
)

// TicketValidationService 检票服务
type TicketValidationService struct {
	ticketRepo repository.TicketRepository
}

// NewTicketValidationService 创建检票服务
func NewTicketValidationService(ticketRepo repository.TicketRepository) *TicketValidationService {
	return &TicketValidationService{ticketRepo: ticketRepo}
}

// TicketValidationResult 核验结果
type TicketValidationResult struct {
	Valid   bool           `json:"valid"`
	Message string         `json:"message"`
	Ticket  *models.Ticket `json:"ticket,omitempty"`
}

// ValidateTicket 核验门票，成功时由条件 UPDATE 置为 used，同一张票只会有一次成功
func (s *TicketValidationService) ValidateTicket(ticketID uint, validationCode string, adminID uint) (*TicketValidationResult, error) {
	code := strings.TrimSpace(validationCode)
	ticket, err := s.ticketRepo.GetByID(ticketID)
	if err != nil {
		return nil, err
	}
	if ticket == nil || code == "" || subtle.ConstantTimeCompare([]byte(ticket.ValidationCode), []byte(code)) != 1 {
		return rejectValidation(constants.TicketValidationInvalid, nil), nil
	}
	if ticket.Status != constants.TicketStatusActive {
		return rejectValidation(validationMessageForStatus(ticket.Status), ticket), nil
	}

	affected, err := s.ticketRepo.MarkUsed(ticket.ID, code, adminID, time.Now())
	if err != nil {
		return nil, err
	}
	current, err := s.ticketRepo.GetByID(ticket.ID)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		if current == nil {
			return rejectValidation(constants.TicketValidationInvalid, nil), nil
		}
		return rejectValidation(validationMessageForStatus(current.Status), current), nil
	}

	metrics.TrackValidation(true)
	logger.Infow("ticket_validated", "ticket_id", ticket.ID, "event_id", ticket.EventID, "admin_id", adminID)
	return &TicketValidationResult{
		Valid:   true,
		Message: constants.TicketValidationOK,
		Ticket:  current,
	}, nil
}

func rejectValidation(message string, ticket *models.Ticket) *TicketValidationResult {
	metrics.TrackValidation(false)
	return &TicketValidationResult{
		Valid:   false,
		Message: message,
		Ticket:  ticket,
	}
}

func validationMessageForStatus(status string) string {
	if status == constants.TicketStatusUsed {
		return constants.TicketValidationAlreadyUsed
	}
	return constants.TicketValidationNotActive
}
