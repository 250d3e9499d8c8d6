package catalog

type createProductRequest struct {
	Name          string   `json:"name" validate:"required"`
	Description   string   `json:"description"`
	Category      string   `json:"category"`
	PurchasePrice float64  `json:"purchase_price" validate:"gte=0"`
	MarketPrice   float64  `json:"market_price" validate:"gte=0"`
	SalePrice     float64  `json:"sale_price" validate:"gte=0"`
	SKU           string   `json:"sku"`
	SourceID      string   `json:"source_id"`
	Barcode       string   `json:"barcode"`
	Stock         int      `json:"stock" validate:"gte=0"`
	Tags          []string `json:"tags"`
	Status        string   `json:"status" validate:"omitempty,oneof=draft pending approved published archived"`
}

type updateProductRequest struct {
	Name          *string  `json:"name"`
	Description   *string  `json:"description"`
	Category      *string  `json:"category"`
	PurchasePrice *float64 `json:"purchase_price" validate:"omitempty,gte=0"`
	MarketPrice   *float64 `json:"market_price" validate:"omitempty,gte=0"`
	SalePrice     *float64 `json:"sale_price" validate:"omitempty,gte=0"`
	SKU           *string  `json:"sku"`
	SourceID      *string  `json:"source_id"`
	Barcode       *string  `json:"barcode"`
	Stock         *int     `json:"stock" validate:"omitempty,gte=0"`
	Tags          []string `json:"tags"`
	Status        *string  `json:"status" validate:"omitempty,oneof=draft pending approved published archived"`
}

type setStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=draft pending approved published archived"`
}

type addTagsRequest struct {
	Tags []string `json:"tags" validate:"required,min=1,dive,required"`
}

func (req createProductRequest) toInput() CreateInput {
	return CreateInput{
		Name:          req.Name,
		Description:   req.Description,
		Category:      req.Category,
		PurchasePrice: req.PurchasePrice,
		MarketPrice:   req.MarketPrice,
		SalePrice:     req.SalePrice,
		SKU:           req.SKU,
		SourceID:      req.SourceID,
		Barcode:       req.Barcode,
		Stock:         req.Stock,
		Tags:          req.Tags,
		Status:        Status(req.Status),
	}
}

func (req updateProductRequest) toInput() UpdateInput {
	input := UpdateInput{
		Name:          req.Name,
		Description:   req.Description,
		Category:      req.Category,
		PurchasePrice: req.PurchasePrice,
		MarketPrice:   req.MarketPrice,
		SalePrice:     req.SalePrice,
		SKU:           req.SKU,
		SourceID:      req.SourceID,
		Barcode:       req.Barcode,
		Stock:         req.Stock,
		Tags:          req.Tags,
	}
	if req.Status != nil {
		status := Status(*req.Status)
		input.Status = &status
	}
	return input
}
