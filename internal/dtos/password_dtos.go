package dtos

// ----------------------
// Password registration / login
// ----------------------

type PasswordRegisterRequest struct {
	Username    string  `json:"username" validate:"required,min=3,max=64"`
	Email       string  `json:"email" validate:"required,email"`
	Password    string  `json:"password" validate:"required,min=8,max=128"`
	DisplayName *string `json:"displayName" validate:"omitempty,max=128"`
}

type PasswordLoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type UpdatePhoneRequest struct {
	Phone string `json:"phone" validate:"required,e164"`
}

// ----------------------
// Token refresh
// ----------------------

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"omitempty"`
}
