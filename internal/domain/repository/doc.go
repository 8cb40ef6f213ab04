// Package repository define los contratos de persistencia del broker: usuarios,
// cuentas vinculadas y refresh tokens. Los drivers viven en internal/store.
//
// Todas las operaciones que cambian más de una fila (crear usuario + link,
// rotar un refresh token, desvincular con chequeo de último método) son
// atómicas dentro del driver; los services nunca componen transacciones.
package repository
