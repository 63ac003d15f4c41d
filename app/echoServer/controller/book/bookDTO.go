package book

type BookReq struct {
	Title     string  `json:"title" validate:"required"`
	Author    string  `json:"author" validate:"required"`
	Cover     string  `json:"cover" validate:"required,oneof=HARD SOFT"`
	Inventory int64   `json:"inventory" validate:"gte=0"`
	DailyFee  string  `json:"daily_fee" validate:"required"`
	ImageURL  *string `json:"image_url"`
}
