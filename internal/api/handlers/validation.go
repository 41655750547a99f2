package handlers

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	soladapter "github.com/qwami-service/qwami_service/internal/infrastructure/adapters/solana"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("solana_address", validSolanaAddress)
	}
}

func validSolanaAddress(fl validator.FieldLevel) bool {
	_, err := soladapter.ParseAddress(fl.Field().String())
	return err == nil
}
