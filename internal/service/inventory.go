package service

import (
	"github.com/courtline/internal/constants"
	"github.com/courtline/internal/metrics"
	"github.com/courtline/internal/models"
	"github.com/courtline/internal/repository"
)

const inventoryCASMaxRetry = 8

// inventoryOp 一次库存变更：数量增量与座位的取出/归还
type inventoryOp struct {
	soldDelta     int
	reservedDelta int
	takeSeats     models.StringArray
	returnSeats   models.StringArray
	requireActive bool
	// clampSold 已售数量最多减到 0
	clampSold bool
}

// applyInventory 在给定仓库上执行库存变更。
// 数量校验由条件 UPDATE 保证，座位列表变更以 inventory_version 做 CAS，冲突时重读重试。
func applyInventory(repo repository.TicketTypeRepository, ticketTypeID uint, op inventoryOp) (*models.TicketType, error) {
	for attempt := 0; attempt < inventoryCASMaxRetry; attempt++ {
		ticketType, err := repo.GetByID(ticketTypeID)
		if err != nil {
			return nil, err
		}
		if ticketType == nil {
			return nil, ErrTicketTypeNotFound
		}
		current := op
		if current.clampSold && ticketType.QuantitySold+current.soldDelta < 0 {
			current.soldDelta = -ticketType.QuantitySold
		}
		if err := precheckInventory(ticketType, current); err != nil {
			return nil, err
		}

		change := repository.InventoryChange{
			SoldDelta:     current.soldDelta,
			ReservedDelta: current.reservedDelta,
			RequireActive: current.requireActive,
		}
		if ticketType.IsSeated() && (len(current.takeSeats) > 0 || len(current.returnSeats) > 0) {
			next, err := nextAvailableSeats(ticketType, current)
			if err != nil {
				return nil, err
			}
			version := ticketType.InventoryVersion
			change.AvailableSeats = next
			change.ExpectVersion = &version
		}

		affected, err := repo.ApplyInventoryChange(ticketTypeID, change)
		if err != nil {
			return nil, err
		}
		if affected == 1 {
			updated, err := repo.GetByID(ticketTypeID)
			if err != nil {
				return nil, err
			}
			if updated == nil {
				return nil, ErrTicketTypeNotFound
			}
			return updated, nil
		}
		metrics.TrackInventoryConflict()
	}
	return nil, ErrInventoryConflict
}

func precheckInventory(ticketType *models.TicketType, op inventoryOp) error {
	if op.requireActive && ticketType.Status != constants.TicketTypeStatusActive {
		if ticketType.Status == constants.TicketTypeStatusSoldOut {
			return ErrInsufficientInventory
		}
		return ErrTicketTypeNotOnSale
	}
	if ticketType.QuantitySold+op.soldDelta < 0 || ticketType.QuantityReserved+op.reservedDelta < 0 {
		return ErrInvalidQuantity
	}
	net := op.soldDelta + op.reservedDelta
	if net > 0 && ticketType.QuantitySold+ticketType.QuantityReserved+net > ticketType.QuantityAvailable {
		return ErrInsufficientInventory
	}
	return nil
}

// nextAvailableSeats 计算变更后的可售座位；归还时忽略不属于票种或已在可售列表中的座位
func nextAvailableSeats(ticketType *models.TicketType, op inventoryOp) (models.StringArray, error) {
	available := append(models.StringArray{}, ticketType.AvailableSeats...)
	if len(op.takeSeats) > 0 {
		for _, seat := range op.takeSeats {
			if !ticketType.SeatNumbers.Contains(seat) {
				return nil, ErrSeatSelectionInvalid
			}
			if !available.Contains(seat) {
				return nil, ErrSeatUnavailable
			}
		}
		available = available.Without(op.takeSeats)
	}
	for _, seat := range op.returnSeats {
		if !ticketType.SeatNumbers.Contains(seat) || available.Contains(seat) {
			continue
		}
		available = append(available, seat)
	}
	return available, nil
}

// resolveSeatSelection 校验并补全购买数量与座位：对号入座票未指定座位时按顺序分配
func resolveSeatSelection(ticketType *models.TicketType, quantity int, seats []string) (int, models.StringArray, error) {
	selected := models.NormalizeSeatNumbers(seats)
	if !ticketType.IsSeated() {
		if len(selected) > 0 {
			return 0, nil, ErrSeatSelectionInvalid
		}
		if quantity <= 0 {
			return 0, nil, ErrInvalidQuantity
		}
		return quantity, models.StringArray{}, nil
	}
	if len(selected) == 0 {
		if quantity <= 0 {
			return 0, nil, ErrInvalidQuantity
		}
		if len(ticketType.AvailableSeats) < quantity {
			return 0, nil, ErrInsufficientInventory
		}
		return quantity, append(models.StringArray{}, ticketType.AvailableSeats[:quantity]...), nil
	}
	if quantity == 0 {
		quantity = len(selected)
	}
	if quantity != len(selected) {
		return 0, nil, ErrSeatSelectionInvalid
	}
	return quantity, selected, nil
}
