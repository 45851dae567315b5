package presenter

import (
	apperrors "github.com/exp-solution/checkin-scanner/internal/errors"
)

const (
	LocaleEN = "en"
	LocaleVI = "vi"
)

type messages struct {
	idleTitle       string
	idleMessage     string
	acquiringTitle  string
	acquiringMsg    string
	scanningTitle   string
	scanningMessage string
	submittingTitle string
	submittingMsg   string // %d guest id
	successTitle    string
	alreadyTitle    string
	alreadyMessage  string // %s guest name
	errorTitle      string
	errors          map[apperrors.ErrorCode]string
	timeLayout      string
}

var catalog = map[string]messages{
	LocaleEN: {
		idleTitle:       "QR Scanner",
		idleMessage:     `Press "Start Scanning" to open the camera`,
		acquiringTitle:  "Starting camera",
		acquiringMsg:    "Waiting for camera access",
		scanningTitle:   "Scanning",
		scanningMessage: "Point camera at QR code to scan",
		submittingTitle: "Checking in",
		submittingMsg:   "Checking in guest #%d",
		successTitle:    "Check-in successful!",
		alreadyTitle:    "Already checked in",
		alreadyMessage:  "%s has already checked in",
		errorTitle:      "Error scanning QR code",
		errors: map[apperrors.ErrorCode]string{
			apperrors.ErrCodeInsecureContext:        "Camera access requires HTTPS or a local network address",
			apperrors.ErrCodePermissionDenied:       "Camera permission was denied",
			apperrors.ErrCodeNoCameraFound:          "No camera found",
			apperrors.ErrCodeUnsupportedEnvironment: "This station cannot use a camera",
			apperrors.ErrCodeDecodeInvalid:          "Invalid QR code",
			apperrors.ErrCodeNetwork:                "Check-in failed. Please try again.",
			apperrors.ErrCodeUnknown:                "Could not start the camera. Please try again.",
		},
		timeLayout: "Jan 2, 2006 3:04 PM",
	},
	LocaleVI: {
		idleTitle:       "QR Scanner",
		idleMessage:     `Nhấn "Bắt đầu quét" để mở camera`,
		acquiringTitle:  "Đang khởi động camera",
		acquiringMsg:    "Đang chờ quyền truy cập camera",
		scanningTitle:   "Đang quét",
		scanningMessage: "Hướng camera về phía mã QR để quét",
		submittingTitle: "Đang check-in",
		submittingMsg:   "Đang check-in khách mời #%d",
		successTitle:    "Check-in thành công!",
		alreadyTitle:    "Đã check-in",
		alreadyMessage:  "%s đã check-in trước đó",
		errorTitle:      "Lỗi khi quét mã QR",
		errors: map[apperrors.ErrorCode]string{
			apperrors.ErrCodeInsecureContext:        "Truy cập camera yêu cầu HTTPS hoặc địa chỉ mạng nội bộ",
			apperrors.ErrCodePermissionDenied:       "Quyền truy cập camera bị từ chối",
			apperrors.ErrCodeNoCameraFound:          "Không tìm thấy camera",
			apperrors.ErrCodeUnsupportedEnvironment: "Trạm này không thể sử dụng camera",
			apperrors.ErrCodeDecodeInvalid:          "QR code không hợp lệ",
			apperrors.ErrCodeNetwork:                "Check-in thất bại. Vui lòng thử lại.",
			apperrors.ErrCodeUnknown:                "Không thể khởi tạo camera. Vui lòng thử lại.",
		},
		timeLayout: "15:04 02/01/2006",
	},
}
