package application

import "github.com/wms-platform/allocation-service/internal/domain"

// ToStockItemDTO maps a stock aggregate to its DTO
func ToStockItemDTO(item *domain.StockItem) *StockItemDTO {
	lines := make([]StockLineDTO, 0, len(item.Lines))
	for _, line := range item.Lines {
		lines = append(lines, StockLineDTO{
			StorageUnitID: line.StorageUnitID,
			LocationID:    line.LocationID,
			Zone:          line.Zone,
			Quantity:      line.Quantity,
			HardCommitted: line.HardCommitted,
			Available:     line.Available(),
			ReceivedAt:    line.ReceivedAt,
		})
	}
	return &StockItemDTO{
		SKU:                   item.SKU,
		ProductName:           item.ProductName,
		Barcode:               item.Barcode,
		TotalQuantity:         item.TotalQuantity,
		HardCommittedQuantity: item.HardCommittedQuantity,
		PhysicalAvailable:     item.PhysicalAvailable(),
		Lines:                 lines,
		UpdatedAt:             item.UpdatedAt,
	}
}

// ToDocumentDTO maps a demand document to its DTO
func ToDocumentDTO(doc *domain.DemandDocument) *DocumentDTO {
	lines := make([]DocumentLineDTO, 0, len(doc.Lines))
	for _, line := range doc.Lines {
		lines = append(lines, DocumentLineDTO{
			SKU:                   line.SKU,
			ProductName:           line.ProductName,
			RequestedQuantity:     line.RequestedQuantity,
			HardAllocatedQuantity: line.HardAllocatedQuantity,
			StorageUnitID:         line.StorageUnitID,
		})
	}
	return &DocumentDTO{
		DocumentID:  doc.DocumentID,
		Kind:        string(doc.Kind),
		Source:      string(doc.Source),
		Status:      string(doc.Status),
		Approved:    doc.Approved,
		WaveID:      doc.WaveID,
		Priority:    doc.Priority,
		Destination: doc.Destination,
		Lines:       lines,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
}

// ToDocumentDTOs maps a list of documents
func ToDocumentDTOs(docs []*domain.DemandDocument) []DocumentDTO {
	dtos := make([]DocumentDTO, 0, len(docs))
	for _, doc := range docs {
		dtos = append(dtos, *ToDocumentDTO(doc))
	}
	return dtos
}

// ToWaveDTO maps a wave aggregate to its DTO
func ToWaveDTO(wave *domain.Wave) *WaveDTO {
	docs := make([]WaveDocumentDTO, 0, len(wave.Documents))
	for _, member := range wave.Documents {
		docs = append(docs, WaveDocumentDTO{
			DocumentID:    member.DocumentID,
			LineCount:     member.LineCount,
			TotalQuantity: member.TotalQuantity,
		})
	}
	return &WaveDTO{
		WaveID:        wave.WaveID,
		Status:        string(wave.Status),
		Size:          string(wave.Size),
		OrderCount:    wave.OrderCount,
		TotalLines:    wave.TotalLines,
		TotalQuantity: wave.TotalQuantity,
		Documents:     docs,
		CreatedAt:     wave.CreatedAt,
		ReleasedAt:    wave.ReleasedAt,
	}
}

// ToWaveDTOs maps a list of waves
func ToWaveDTOs(waves []*domain.Wave) []WaveDTO {
	dtos := make([]WaveDTO, 0, len(waves))
	for _, wave := range waves {
		dtos = append(dtos, *ToWaveDTO(wave))
	}
	return dtos
}

// ToPickingJobDTO maps a picking job to its DTO
func ToPickingJobDTO(job *domain.PickingJob) *PickingJobDTO {
	tasks := make([]PickingTaskDTO, 0, len(job.Tasks))
	for _, task := range job.Tasks {
		tasks = append(tasks, PickingTaskDTO{
			TaskID:         task.TaskID,
			DocumentID:     task.DocumentID,
			SKU:            task.SKU,
			ProductName:    task.ProductName,
			StorageUnitID:  task.StorageUnitID,
			LocationID:     task.LocationID,
			Zone:           task.Zone,
			Quantity:       task.Quantity,
			PickedQuantity: task.PickedQuantity,
			Status:         string(task.Status),
		})
	}
	return &PickingJobDTO{
		JobID:       job.JobID,
		WaveID:      job.WaveID,
		Zone:        job.Zone,
		Status:      string(job.Status),
		PickerID:    job.PickerID,
		Tasks:       tasks,
		CreatedAt:   job.CreatedAt,
		CompletedAt: job.CompletedAt,
	}
}

// ToPickingJobDTOs maps a list of jobs
func ToPickingJobDTOs(jobs []*domain.PickingJob) []PickingJobDTO {
	dtos := make([]PickingJobDTO, 0, len(jobs))
	for _, job := range jobs {
		dtos = append(dtos, *ToPickingJobDTO(job))
	}
	return dtos
}

// ToShortageItemDTOs maps a shortage report to DTO items
func ToShortageItemDTOs(report *domain.ShortageReport) []ShortageItemDTO {
	if report == nil {
		return nil
	}
	items := make([]ShortageItemDTO, 0, len(report.Items))
	for _, item := range report.Sorted() {
		items = append(items, ShortageItemDTO{
			SKU:       item.SKU,
			Name:      item.Name,
			Needed:    item.Needed,
			Available: item.Available,
			Missing:   item.Missing,
		})
	}
	return items
}

// ToLedgerEntryDTOs maps audit records
func ToLedgerEntryDTOs(entries []*domain.LedgerEntry) []LedgerEntryDTO {
	dtos := make([]LedgerEntryDTO, 0, len(entries))
	for _, entry := range entries {
		dtos = append(dtos, LedgerEntryDTO{
			EntryType:       string(entry.EntryType),
			SKU:             entry.SKU,
			StorageUnitID:   entry.StorageUnitID,
			Quantity:        entry.Quantity,
			CommittedBefore: entry.CommittedBefore,
			CommittedAfter:  entry.CommittedAfter,
			ReferenceID:     entry.ReferenceID,
			Actor:           entry.Actor,
			CreatedAt:       entry.CreatedAt,
		})
	}
	return dtos
}
