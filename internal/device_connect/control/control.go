package control

import (
	"log"
)

// ControlService 控制服务
type ControlService struct {
	// 控制相关的依赖
}

// NewControlService creates a new control service
func NewControlService() *ControlService {
	return &ControlService{}
}

// HandleTouchEvent 处理触摸事件
func (s *ControlService) HandleTouchEvent(msg map[string]interface{}, deviceSerial string) error {
	action, _ := msg["action"].(string)
	x, _ := msg["x"].(float64)
	y, _ := msg["y"].(float64)
	pressure, _ := msg["pressure"].(float64)
	pointerId, _ := msg["pointerId"].(float64)

	log.Printf("Touch event: device=%s, action=%s, x=%.3f, y=%.3f, pressure=%.2f, pointerId=%.0f",
		deviceSerial, action, x, y, pressure, pointerId)

	// TODO: Forward touch event to bridge manager
	// This will be implemented when bridge integration is ready
	log.Printf("Touch event received but bridge integration not yet implemented")

	return nil
}

// HandleKeyEvent 处理键盘事件
func (s *ControlService) HandleKeyEvent(msg map[string]interface{}, deviceSerial string) error {
	action, _ := msg["action"].(string)
	keycode, _ := msg["keycode"].(float64)
	metaState, _ := msg["metaState"].(float64)

	log.Printf("Key event: device=%s, action=%s, keycode=%.0f, metaState=%.0f",
		deviceSerial, action, keycode, metaState)

	// TODO: Forward key event to bridge manager
	// This will be implemented when bridge integration is ready
	log.Printf("Key event received but bridge integration not yet implemented")

	return nil
}

// HandleScrollEvent 处理滚动事件
func (s *ControlService) HandleScrollEvent(msg map[string]interface{}, deviceSerial string) error {
	x, _ := msg["x"].(float64)
	y, _ := msg["y"].(float64)
	hScroll, _ := msg["hScroll"].(float64)
	vScroll, _ := msg["vScroll"].(float64)

	log.Printf("Scroll event: device=%s, x=%.3f, y=%.3f, hScroll=%.2f, vScroll=%.2f",
		deviceSerial, x, y, hScroll, vScroll)

	// TODO: Forward scroll event to bridge manager
	// This will be implemented when bridge integration is ready
	log.Printf("Scroll event received but bridge integration not yet implemented")

	return nil
}

// HandleClipboardEvent 处理剪贴板事件
func (s *ControlService) HandleClipboardEvent(msg map[string]interface{}, deviceSerial string) error {
	text, _ := msg["text"].(string)
	paste, _ := msg["paste"].(bool)

	log.Printf("Clipboard event: device=%s, text_length=%d, paste=%t",
		deviceSerial, len(text), paste)

	// TODO: Forward clipboard event to bridge manager
	// This will be implemented when bridge integration is ready
	log.Printf("Clipboard event received but bridge integration not yet implemented")

	return nil
}

// HandleVideoResetEvent 处理视频重置事件
func (s *ControlService) HandleVideoResetEvent(msg map[string]interface{}, deviceSerial string) error {
	log.Printf("Reset video event: device=%s", deviceSerial)

	// TODO: Forward video reset event to bridge manager
	// This will be implemented when bridge integration is ready
	log.Printf("Video reset event received but bridge integration not yet implemented")

	return nil
}

// HandleWebRTCEvent 处理 WebRTC 事件
func (s *ControlService) HandleWebRTCEvent(msg map[string]interface{}, deviceSerial string) error {
	msgType, _ := msg["type"].(string)
	
	log.Printf("WebRTC event: device=%s, type=%s", deviceSerial, msgType)

	// TODO: Forward WebRTC event to WebRTC handler
	// This will be implemented when WebRTC integration is ready
	log.Printf("WebRTC event received but WebRTC integration not yet implemented")

	return nil
}

// 全局控制服务实例
var controlService *ControlService

// GetControlService 获取控制服务实例
func GetControlService() *ControlService {
	if controlService == nil {
		controlService = NewControlService()
	}
	return controlService
}
