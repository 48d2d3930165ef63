package services

import (
	"fmt"
	"mime/multipart"
	"sync"
)

// MockImageService is a mock implementation of ImageService for testing
type MockImageService struct {
	uploadedKeys []string
	mu           sync.Mutex
	FailUploads  bool // when true, UploadImage returns an error
}

// NewMockImageService creates a new mock image service
func NewMockImageService() *MockImageService {
	return &MockImageService{}
}

// SetAsMockForTesting sets this mock as the global image service instance for testing
func (m *MockImageService) SetAsMockForTesting() {
	SetImageService(m)
}

// UploadImage simulates validating and uploading an image
func (m *MockImageService) UploadImage(fileHeader *multipart.FileHeader) (string, error) {
	if m.FailUploads {
		return "", fmt.Errorf("mock upload failure")
	}

	key := fmt.Sprintf("repairs/mock_%s", fileHeader.Filename)
	m.mu.Lock()
	m.uploadedKeys = append(m.uploadedKeys, key)
	m.mu.Unlock()
	return key, nil
}

// GetImageURL returns a deterministic mock URL for the key
func (m *MockImageService) GetImageURL(imageKey string) (string, error) {
	if imageKey == "" {
		return "", nil
	}
	return fmt.Sprintf("https://test-bucket.s3.us-east-1.amazonaws.com/%s?mock=true", imageKey), nil
}

// DeleteImage simulates deleting an image
func (m *MockImageService) DeleteImage(imageKey string) error {
	return nil
}

// UploadedKeys returns the keys recorded by UploadImage
func (m *MockImageService) UploadedKeys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, len(m.uploadedKeys))
	copy(keys, m.uploadedKeys)
	return keys
}
