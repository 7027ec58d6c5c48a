package dto

// UpdateProfileRequest 更新用户信息请求
type UpdateProfileRequest struct {
	Username *string `json:"username,omitempty" binding:"omitempty,min=3,max=50"`
	FullName *string `json:"full_name,omitempty" binding:"omitempty,max=100"`
	Company  *string `json:"company,omitempty" binding:"omitempty,max=100"`
}

// UpdateBusinessLocationRequest 绑定 Google Business 门店请求
type UpdateBusinessLocationRequest struct {
	LocationID string `json:"location_id" binding:"required,max=200"`
}

// UploadAvatarResponse 上传头像响应
type UploadAvatarResponse struct {
	AvatarURL string `json:"avatar_url"`
}

// DeleteAccountRequest 注销账号请求
type DeleteAccountRequest struct {
	Password string `json:"password,omitempty"`
}
