package service_test

import (
	"context"
	"io"
	"log/slog"

	"github.com/stretchr/testify/mock"

	"pizzeria-service/mocks"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// runInTx настраивает мок транзакций так, чтобы функция выполнялась сразу.
func runInTx(txm *mocks.TxManager) {
	txm.On("WithinTx", mock.Anything, mock.Anything).
		Return(func(ctx context.Context, fn func(context.Context) error) error { return fn(ctx) })
}
