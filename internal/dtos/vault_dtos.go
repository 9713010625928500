package dtos

// ----------------------
// Password vault
// ----------------------

type SavePasswordRequest struct {
	Website  string  `json:"website" validate:"required,max=255"`
	URL      *string `json:"url" validate:"omitempty,url"`
	Username string  `json:"username" validate:"required,max=255"`
	Password string  `json:"password" validate:"required,max=1024"`
	Notes    *string `json:"notes" validate:"omitempty,max=4096"`
}

type UpdatePasswordRequest struct {
	Website  string  `json:"website" validate:"required,max=255"`
	URL      *string `json:"url" validate:"omitempty,url"`
	Username string  `json:"username" validate:"required,max=255"`
	Password string  `json:"password" validate:"required,max=1024"`
	Notes    *string `json:"notes" validate:"omitempty,max=4096"`
}
