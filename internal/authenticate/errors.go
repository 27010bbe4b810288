package authenticate

// Mensajes de error de autenticación de client. Se devuelven como strings al
// orquestador, no como exceptions. Mantienen la taxonomía del protocolo:
// el mensaje genérico nunca distingue "el client no existe" de "el secret es
// incorrecto" (anti-enumeración).
const (
	ErrClientCannotBeAuthenticated       = "the client cannot be authenticated"
	ErrClientCannotBeAuthenticatedBasic  = "the client cannot be authenticated with secret basic"
	ErrClientCannotBeAuthenticatedPost   = "the client cannot be authenticated with secret post"
	ErrClientCannotBeAuthenticatedTLS    = "the client cannot be authenticated with tls client auth"
	ErrClientAssertionIsNotJWS           = "the client assertion is not a JWS token"
	ErrJWSPayloadCannotBeExtracted       = "the jws payload cannot be extracted"
	ErrSignatureIsNotCorrect             = "the signature is not correct"
	ErrClientIDInJWTIsNotCorrect         = "the client id passed in JWT is not correct"
	ErrAudienceInJWTIsNotCorrect         = "the audience passed in JWT is not correct"
	ErrJWTHasExpired                     = "the received JWT has expired"
	ErrJWTExpirationIsMissing            = "the parameter exp is missing"
	ErrClientAssertionIsNotJWE           = "the client assertion is not a JWE token"
	ErrJWECannotBeDecrypted              = "the jwe token cannot be decrypted"
)
