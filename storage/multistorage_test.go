package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/certvault/certificate-registry-backend/interfaces"
)

// MockArtifactStore implements interfaces.ArtifactStore for testing
type MockArtifactStore struct {
	mock.Mock
	name string
}

func (m *MockArtifactStore) Fetch(ctx context.Context, id interfaces.ContentID, kind interfaces.ArtifactKind) ([]byte, error) {
	args := m.Called(ctx, id, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockArtifactStore) Store(ctx context.Context, data []byte, kind interfaces.ArtifactKind) (interfaces.ContentID, error) {
	args := m.Called(ctx, data, kind)
	return args.Get(0).(interfaces.ContentID), args.Error(1)
}

func (m *MockArtifactStore) Available(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

func (m *MockArtifactStore) Name() string {
	return m.name
}

func (m *MockArtifactStore) LocationURI() string {
	return "mock:"
}

func TestMultiStore_Available(t *testing.T) {
	tests := []struct {
		name     string
		stores   []bool
		expected bool
	}{
		{
			name:     "all stores available",
			stores:   []bool{true, true, true},
			expected: true,
		},
		{
			name:     "some stores available",
			stores:   []bool{false, true, false},
			expected: true,
		},
		{
			name:     "no stores available",
			stores:   []bool{false, false, false},
			expected: false,
		},
		{
			name:     "no stores",
			stores:   []bool{},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stores []interfaces.ArtifactStore
			for i, available := range tt.stores {
				mockStore := &MockArtifactStore{name: fmt.Sprintf("mock-A%x", i)}
				mockStore.On("Available", mock.Anything).Return(available).Maybe()
				stores = append(stores, mockStore)
			}

			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			multi := NewMultiStore(stores, logger)

			result := multi.Available(context.Background())
			assert.Equal(t, tt.expected, result)

			for _, store := range stores {
				mockStore := store.(*MockArtifactStore)
				mockStore.AssertExpectations(t)
			}
		})
	}
}

func TestMultiStore_Fetch(t *testing.T) {
	testID := interfaces.ContentID([32]byte{1, 2, 3, 4})
	testData := []byte("certificate document")
	testErr := errors.New("test error")

	tests := []struct {
		name          string
		setupMocks    func() []interfaces.ArtifactStore
		expectedData  []byte
		expectedError bool
	}{
		{
			name: "first store successful",
			setupMocks: func() []interfaces.ArtifactStore {
				mock1 := &MockArtifactStore{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Fetch", mock.Anything, testID, interfaces.DocumentKind).Return(testData, nil)

				// Second store is never consulted when the first hits
				mock2 := &MockArtifactStore{name: "mock-B"}

				return []interfaces.ArtifactStore{mock1, mock2}
			},
			expectedData:  testData,
			expectedError: false,
		},
		{
			name: "first store fails, second succeeds",
			setupMocks: func() []interfaces.ArtifactStore {
				mock1 := &MockArtifactStore{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Fetch", mock.Anything, testID, interfaces.DocumentKind).Return(nil, testErr)

				mock2 := &MockArtifactStore{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Fetch", mock.Anything, testID, interfaces.DocumentKind).Return(testData, nil)

				return []interfaces.ArtifactStore{mock1, mock2}
			},
			expectedData:  testData,
			expectedError: false,
		},
		{
			name: "all stores fail",
			setupMocks: func() []interfaces.ArtifactStore {
				mock1 := &MockArtifactStore{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Fetch", mock.Anything, testID, interfaces.DocumentKind).Return(nil, testErr)

				mock2 := &MockArtifactStore{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Fetch", mock.Anything, testID, interfaces.DocumentKind).Return(nil, testErr)

				return []interfaces.ArtifactStore{mock1, mock2}
			},
			expectedData:  nil,
			expectedError: true,
		},
		{
			name: "unavailable stores are skipped",
			setupMocks: func() []interfaces.ArtifactStore {
				mock1 := &MockArtifactStore{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(false)

				mock2 := &MockArtifactStore{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Fetch", mock.Anything, testID, interfaces.DocumentKind).Return(testData, nil)

				return []interfaces.ArtifactStore{mock1, mock2}
			},
			expectedData:  testData,
			expectedError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stores := tt.setupMocks()
			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			multi := NewMultiStore(stores, logger)

			data, err := multi.Fetch(context.Background(), testID, interfaces.DocumentKind)

			if tt.expectedError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expectedData, data)

			for _, store := range stores {
				mockStore := store.(*MockArtifactStore)
				mockStore.AssertExpectations(t)
			}
		})
	}
}

func TestMultiStore_Store(t *testing.T) {
	testID := interfaces.ContentID([32]byte{1, 2, 3, 4})
	testData := []byte("certificate document")
	testErr := errors.New("test error")

	tests := []struct {
		name          string
		setupMocks    func() []interfaces.ArtifactStore
		expectedID    interfaces.ContentID
		expectedError bool
	}{
		{
			name: "all stores successful",
			setupMocks: func() []interfaces.ArtifactStore {
				mock1 := &MockArtifactStore{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Store", mock.Anything, testData, interfaces.DocumentKind).Return(testID, nil)

				mock2 := &MockArtifactStore{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Store", mock.Anything, testData, interfaces.DocumentKind).Return(testID, nil)

				return []interfaces.ArtifactStore{mock1, mock2}
			},
			expectedID:    testID,
			expectedError: false,
		},
		{
			name: "some stores fail",
			setupMocks: func() []interfaces.ArtifactStore {
				mock1 := &MockArtifactStore{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Store", mock.Anything, testData, interfaces.DocumentKind).Return(testID, nil)

				mock2 := &MockArtifactStore{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Store", mock.Anything, testData, interfaces.DocumentKind).Return(interfaces.ContentID{}, testErr)

				return []interfaces.ArtifactStore{mock1, mock2}
			},
			expectedID:    testID,
			expectedError: false,
		},
		{
			name: "all stores fail",
			setupMocks: func() []interfaces.ArtifactStore {
				mock1 := &MockArtifactStore{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Store", mock.Anything, testData, interfaces.DocumentKind).Return(interfaces.ContentID{}, testErr)

				mock2 := &MockArtifactStore{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Store", mock.Anything, testData, interfaces.DocumentKind).Return(interfaces.ContentID{}, testErr)

				return []interfaces.ArtifactStore{mock1, mock2}
			},
			expectedID:    interfaces.ContentID{},
			expectedError: true,
		},
		{
			name: "unavailable stores are skipped",
			setupMocks: func() []interfaces.ArtifactStore {
				mock1 := &MockArtifactStore{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(false)

				mock2 := &MockArtifactStore{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Store", mock.Anything, testData, interfaces.DocumentKind).Return(testID, nil)

				return []interfaces.ArtifactStore{mock1, mock2}
			},
			expectedID:    testID,
			expectedError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stores := tt.setupMocks()
			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			multi := NewMultiStore(stores, logger)

			id, err := multi.Store(context.Background(), testData, interfaces.DocumentKind)

			if tt.expectedError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expectedID, id)

			for _, store := range stores {
				mockStore := store.(*MockArtifactStore)
				mockStore.AssertExpectations(t)
			}
		})
	}
}
