package application

import (
	"fmt"

	"github.com/wms-platform/allocation-service/internal/domain"
)

// The planner evaluates and executes allocation against stock
// aggregates already loaded inside the enclosing transaction. Check
// first, execute second: the whole demand set is evaluated before any
// commitment is applied, so a short line aborts with zero side effects
// and a complete per-SKU report instead of a partial allocation.

// checkAvailability evaluates every line of every document against one
// shared stock snapshot and returns the aggregated shortage report.
// Item-kind demand is summed per SKU; storage-unit demand must take its
// unit's whole quantity and is checked against that specific unit, with
// units double-claimed inside the same set treated as unavailable to
// the second claimant.
func checkAvailability(docs []*domain.DemandDocument, stocks map[string]*domain.StockItem) (*domain.ShortageReport, error) {
	report := domain.NewShortageReport()

	neededBySKU := make(map[string]int)
	nameBySKU := make(map[string]string)
	claimedUnits := make(map[string]string) // storage unit -> document
	shortAtUnit := make(map[string]bool)

	for _, doc := range docs {
		switch doc.Kind {
		case domain.DemandKindItem:
			for _, line := range doc.Lines {
				neededBySKU[line.SKU] += line.RequestedQuantity
				if nameBySKU[line.SKU] == "" {
					nameBySKU[line.SKU] = line.ProductName
				}
			}

		case domain.DemandKindStorageUnit:
			for _, line := range doc.Lines {
				// Unit demand draws from the same physical pool
				neededBySKU[line.SKU] += line.RequestedQuantity
				if nameBySKU[line.SKU] == "" {
					nameBySKU[line.SKU] = line.ProductName
				}

				available := 0
				if stock, ok := stocks[line.SKU]; ok {
					if unit := stock.LineFor(line.StorageUnitID); unit != nil {
						// Units move whole; a partial take would leave an
						// unclaimable remainder behind the exclusive claim.
						if line.RequestedQuantity != unit.Quantity {
							return nil, fmt.Errorf("%w: unit %s holds %d of %s, requested %d",
								domain.ErrPartialUnitDemand, line.StorageUnitID, unit.Quantity,
								line.SKU, line.RequestedQuantity)
						}
						available = unit.Available()
					}
				}
				if holder, taken := claimedUnits[line.StorageUnitID]; taken && holder != doc.DocumentID {
					available = 0
				}
				claimedUnits[line.StorageUnitID] = doc.DocumentID

				if line.RequestedQuantity > available {
					report.Add(line.SKU, line.ProductName, line.RequestedQuantity, available)
					shortAtUnit[line.SKU] = true
				}
			}

		default:
			return nil, fmt.Errorf("%w: %q on document %s", domain.ErrUnknownDemandKind, doc.Kind, doc.DocumentID)
		}
	}

	for sku, needed := range neededBySKU {
		if shortAtUnit[sku] {
			continue
		}
		available := 0
		if stock, ok := stocks[sku]; ok {
			available = stock.PhysicalAvailable()
		}
		if needed > available {
			report.Add(sku, nameBySKU[sku], needed, available)
		}
	}

	return report, nil
}

// buildPicks converts one document's demand into hard commitments and
// picking tasks. Item lines walk the SKU's stock lines oldest received
// first; storage-unit lines take their whole unit. Must only run after
// checkAvailability passed on the same snapshot; a commit failure here
// means the snapshot was violated and the transaction must abort.
func buildPicks(doc *domain.DemandDocument, stocks map[string]*domain.StockItem) ([]domain.PickingTask, []*domain.LedgerEntry, error) {
	tasks := make([]domain.PickingTask, 0, len(doc.Lines))
	entries := make([]*domain.LedgerEntry, 0, len(doc.Lines))

	for _, line := range doc.Lines {
		stock, ok := stocks[line.SKU]
		if !ok {
			return nil, nil, fmt.Errorf("no stock for sku %s: %w", line.SKU, domain.ErrInsufficientPhysicalStock)
		}

		switch doc.Kind {
		case domain.DemandKindItem:
			remaining := line.RequestedQuantity
			for _, candidate := range stock.AvailableLinesFIFO() {
				if remaining == 0 {
					break
				}
				take := candidate.Available()
				if take > remaining {
					take = remaining
				}

				before := stock.LineFor(candidate.StorageUnitID).HardCommitted
				if err := stock.Commit(candidate.StorageUnitID, take); err != nil {
					return nil, nil, err
				}
				remaining -= take

				tasks = append(tasks, domain.NewPickingTask(
					doc.DocumentID, line.SKU, line.ProductName,
					candidate.StorageUnitID, candidate.LocationID, candidate.Zone, take))
				entries = append(entries, domain.NewLedgerEntry(
					domain.LedgerEntryCommit, line.SKU, candidate.StorageUnitID,
					take, before, before+take, doc.DocumentID, "allocation-engine"))
			}
			if remaining > 0 {
				return nil, nil, fmt.Errorf("sku %s short by %d after availability check: %w",
					line.SKU, remaining, domain.ErrInsufficientPhysicalStock)
			}
			if err := doc.RecordHardAllocation(line.SKU, line.RequestedQuantity); err != nil {
				return nil, nil, err
			}

		case domain.DemandKindStorageUnit:
			unit := stock.LineFor(line.StorageUnitID)
			if unit == nil {
				return nil, nil, fmt.Errorf("storage unit %s has no stock of %s: %w",
					line.StorageUnitID, line.SKU, domain.ErrStorageUnitNotFound)
			}

			before := unit.HardCommitted
			if err := stock.Commit(line.StorageUnitID, line.RequestedQuantity); err != nil {
				return nil, nil, err
			}

			tasks = append(tasks, domain.NewPickingTask(
				doc.DocumentID, line.SKU, line.ProductName,
				unit.StorageUnitID, unit.LocationID, unit.Zone, line.RequestedQuantity))
			entries = append(entries, domain.NewLedgerEntry(
				domain.LedgerEntryCommit, line.SKU, unit.StorageUnitID,
				line.RequestedQuantity, before, before+line.RequestedQuantity,
				doc.DocumentID, "allocation-engine"))

			if err := doc.RecordHardAllocation(line.SKU, line.RequestedQuantity); err != nil {
				return nil, nil, err
			}

		default:
			return nil, nil, fmt.Errorf("%w: %q on document %s", domain.ErrUnknownDemandKind, doc.Kind, doc.DocumentID)
		}
	}

	return tasks, entries, nil
}

// groupTasksByZone partitions tasks into one picking job per zone so
// each job keeps a picker inside one travel area. Tasks from different
// documents in the same zone share a job.
func groupTasksByZone(waveID string, tasks []domain.PickingTask) []*domain.PickingJob {
	byZone := make(map[string][]domain.PickingTask)
	zoneOrder := make([]string, 0)
	for _, task := range tasks {
		if _, seen := byZone[task.Zone]; !seen {
			zoneOrder = append(zoneOrder, task.Zone)
		}
		byZone[task.Zone] = append(byZone[task.Zone], task)
	}

	jobs := make([]*domain.PickingJob, 0, len(zoneOrder))
	for _, zone := range zoneOrder {
		jobs = append(jobs, domain.NewPickingJob(waveID, zone, byZone[zone]))
	}
	return jobs
}

// storageUnitsToClaim returns the distinct storage units a document's
// unit-kind lines must lock exclusively before allocation commits.
func storageUnitsToClaim(doc *domain.DemandDocument) []string {
	if doc.Kind != domain.DemandKindStorageUnit {
		return nil
	}
	seen := make(map[string]struct{})
	units := make([]string, 0, len(doc.Lines))
	for _, line := range doc.Lines {
		if _, ok := seen[line.StorageUnitID]; ok {
			continue
		}
		seen[line.StorageUnitID] = struct{}{}
		units = append(units, line.StorageUnitID)
	}
	return units
}

// collectSKUs returns the distinct SKUs demanded by a document set
func collectSKUs(docs []*domain.DemandDocument) []string {
	seen := make(map[string]struct{})
	skus := make([]string, 0)
	for _, doc := range docs {
		for _, line := range doc.Lines {
			if _, ok := seen[line.SKU]; ok {
				continue
			}
			seen[line.SKU] = struct{}{}
			skus = append(skus, line.SKU)
		}
	}
	return skus
}
