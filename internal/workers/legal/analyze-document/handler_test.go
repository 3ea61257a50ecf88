package analyzedocument

import (
	"context"
	"errors"
	"testing"
	"time"

	"legal-analyzer/internal/common/config"
	apperrors "legal-analyzer/internal/common/errors"
	"legal-analyzer/internal/common/logger"
	"legal-analyzer/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Implementations
// ==========================

type MockProcessor struct {
	mock.Mock
}

func (m *MockProcessor) Submit(ctx context.Context, documentID, filename string) error {
	return m.Called(ctx, documentID, filename).Error(0)
}

func (m *MockProcessor) Process(ctx context.Context, documentID, filename, text string) (*models.DocumentAnalysis, error) {
	args := m.Called(ctx, documentID, filename, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DocumentAnalysis), args.Error(1)
}

type fakeBlobs map[string][]byte

func (f fakeBlobs) Get(_ context.Context, key string) ([]byte, error) {
	b, ok := f[key]
	if !ok {
		return nil, apperrors.NewBlobStorageFailedError("get", errors.New("NoSuchKey"))
	}
	return b, nil
}

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() *Config {
	return &Config{Timeout: 5 * time.Second}
}

func sampleAnalysis(id string) *models.DocumentAnalysis {
	return &models.DocumentAnalysis{
		DocumentID:       id,
		DocumentType:     models.DocumentTypeRentalAgreement,
		OverallRiskScore: 6.4,
		Clauses: []models.LegalClause{
			{ClauseID: id + "_0_aaaaaaaa", RiskScore: 9},
			{ClauseID: id + "_1_bbbbbbbb", RiskScore: 7},
			{ClauseID: id + "_2_cccccccc", RiskScore: 3},
		},
		RedFlags: []string{"Unlimited liability exposure detected"},
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	tests := []struct {
		name           string
		input          *Input
		blobs          BlobReader
		expectedText   string
		validateOutput func(t *testing.T, output *Output)
	}{
		{
			name:         "inline text",
			input:        &Input{DocumentID: "doc-1", Filename: "lease.pdf", Text: "1. Rent is due monthly."},
			expectedText: "1. Rent is due monthly.",
			validateOutput: func(t *testing.T, output *Output) {
				assert.Equal(t, "doc-1", output.DocumentID)
				assert.Equal(t, models.StatusCompleted, output.Status)
				assert.Equal(t, 3, output.ClauseCount)
				assert.Equal(t, 2, output.HighRiskCount)
				assert.Equal(t, 6.4, output.OverallRisk)
				assert.Equal(t, models.DocumentTypeRentalAgreement, output.DocumentType)
			},
		},
		{
			name:         "stored plain text",
			input:        &Input{DocumentID: "doc-1", Filename: "lease.txt", StorageKey: "documents/doc-1/lease.txt"},
			blobs:        fakeBlobs{"documents/doc-1/lease.txt": []byte("Stored lease body.")},
			expectedText: "Stored lease body.",
			validateOutput: func(t *testing.T, output *Output) {
				assert.Equal(t, []string{"Unlimited liability exposure detected"}, output.RedFlags)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			processor := new(MockProcessor)
			processor.On("Submit", mock.Anything, "doc-1", tt.input.Filename).Return(nil)
			processor.On("Process", mock.Anything, "doc-1", tt.input.Filename, tt.expectedText).Return(sampleAnalysis("doc-1"), nil)

			handler := NewHandler(createTestConfig(), processor, tt.blobs, logger.NewTestLogger(t))
			output, err := handler.Execute(context.Background(), tt.input)

			require.NoError(t, err)
			tt.validateOutput(t, output)
			processor.AssertExpectations(t)
		})
	}
}

func TestHandler_Execute_GeneratesDocumentID(t *testing.T) {
	processor := new(MockProcessor)
	processor.On("Submit", mock.Anything, mock.AnythingOfType("string"), "lease.txt").Return(nil)
	processor.On("Process", mock.Anything, mock.AnythingOfType("string"), "lease.txt", "text").
		Return(sampleAnalysis("generated"), nil)

	handler := NewHandler(createTestConfig(), processor, nil, logger.NewTestLogger(t))
	output, err := handler.Execute(context.Background(), &Input{Filename: "lease.txt", Text: "text"})

	require.NoError(t, err)
	assert.Len(t, output.DocumentID, 36)
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_InputErrors(t *testing.T) {
	tests := []struct {
		name        string
		input       *Input
		blobs       BlobReader
		expectedErr error
	}{
		{"nil input", nil, nil, ErrMissingFilename},
		{"missing filename", &Input{Text: "x"}, nil, ErrMissingFilename},
		{"no content", &Input{Filename: "a.txt"}, nil, ErrMissingContent},
		{"no blob store", &Input{Filename: "a.txt", StorageKey: "documents/d/a.txt"}, nil, ErrMissingContent},
		{"stored pdf", &Input{Filename: "a.pdf", StorageKey: "documents/d/a.pdf"}, fakeBlobs{}, ErrUnsupportedContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			processor := new(MockProcessor)
			handler := NewHandler(createTestConfig(), processor, tt.blobs, logger.NewTestLogger(t))

			_, err := handler.Execute(context.Background(), tt.input)

			assert.ErrorIs(t, err, tt.expectedErr)
			processor.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestHandler_Execute_ProcessingFailure(t *testing.T) {
	processor := new(MockProcessor)
	processor.On("Submit", mock.Anything, "doc-1", "a.txt").Return(nil)
	processor.On("Process", mock.Anything, "doc-1", "a.txt", "   ").
		Return(nil, apperrors.NewEmptyDocumentError("doc-1"))

	handler := NewHandler(createTestConfig(), processor, nil, logger.NewTestLogger(t))
	_, err := handler.Execute(context.Background(), &Input{DocumentID: "doc-1", Filename: "a.txt", Text: "   "})

	require.Error(t, err)
	assert.Equal(t, "EMPTY_DOCUMENT", handler.mapErrorToCode(err))
}

func TestHandler_Execute_BlobFailure(t *testing.T) {
	processor := new(MockProcessor)
	handler := NewHandler(createTestConfig(), processor, fakeBlobs{}, logger.NewTestLogger(t))

	_, err := handler.Execute(context.Background(), &Input{DocumentID: "doc-1", Filename: "a.txt", StorageKey: "documents/doc-1/a.txt"})

	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeBlobStorageFailed))
}

func TestMapErrorToCode(t *testing.T) {
	handler := NewHandler(createTestConfig(), new(MockProcessor), nil, logger.NewNoOpLogger())

	assert.Equal(t, "MISSING_FILENAME", handler.mapErrorToCode(ErrMissingFilename))
	assert.Equal(t, "UNSUPPORTED_STORED_CONTENT", handler.mapErrorToCode(ErrUnsupportedContent))
	assert.Equal(t, "LLM_TIMEOUT", handler.mapErrorToCode(apperrors.NewLLMTimeoutError("analyze")))
	assert.Equal(t, "UNKNOWN_ERROR", handler.mapErrorToCode(errors.New("boom")))
}

func TestLoadConfig(t *testing.T) {
	assert.Equal(t, 2*time.Second, LoadConfig(config.WorkerConfig{Timeout: 2000}).Timeout)
	assert.Equal(t, defaultTimeout, LoadConfig(config.WorkerConfig{}).Timeout)
}
