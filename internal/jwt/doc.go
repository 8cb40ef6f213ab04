// Package jwt maneja la clave RSA del proceso, la firma RS256 de access e ID
// tokens, y la publicación de JWKS y discovery.
//
// La clave se carga o genera una vez al arrancar; la rotación es operativa:
// se reinicia con una clave nueva y la pública anterior se publica vía
// jwt.previous_public_keys hasta que expiren los tokens firmados con ella.
package jwt
