// Package logger expone un logger Zap singleton con scoping por contexto.
//
// Inicialización (una vez, en cmd/yesod):
//
//	logger.Init(logger.Config{Env: cfg.Log.Env, Level: cfg.Log.Level, ServiceName: "yesod"})
//	defer logger.Sync()
//
// En services (con contexto), el middleware de logging ya dejó un logger con
// request_id/method/path:
//
//	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("token"))
//	log.Info("refresh rotated", logger.FamilyID(famID))
//
// Nunca se loguean tokens, codes ni verifiers. Los emails pasan por MaskEmail.
package logger
