package docstore

import "strings"

// Colecciones del dominio. Centralizadas acá para que adapters y componentes
// no diverjan en el layout de paths.
const (
	CollectionEvents          = "events"
	CollectionGuests          = "guests"
	CollectionAttendance      = "attendance"
	CollectionPending         = "pending_conversions"
	CollectionUsers           = "users"
	CollectionCredentialIndex = "credential_index"
	CollectionRevocations     = "session_revocations"

	// Subcolección de credenciales bajo cada user.
	subCredentials = "credentials"
)

func EventPath(id string) string   { return CollectionEvents + "/" + id }
func GuestPath(id string) string   { return CollectionGuests + "/" + id }
func AttendancePath(id string) string {
	return CollectionAttendance + "/" + id
}
func PendingPath(email string) string {
	return CollectionPending + "/" + email
}
func UserPath(id string) string { return CollectionUsers + "/" + id }

// CredentialPath ubica el CredentialRecord bajo su user.
func CredentialPath(userID, credentialID string) string {
	return CollectionUsers + "/" + userID + "/" + subCredentials + "/" + credentialID
}

// UserCredentials es la colección de credenciales de un user.
func UserCredentials(userID string) string {
	return CollectionUsers + "/" + userID + "/" + subCredentials
}

// CredentialIndexPath ubica la entrada plana del índice de credenciales.
func CredentialIndexPath(credentialID string) string {
	return CollectionCredentialIndex + "/" + credentialID
}

func RevocationPath(id string) string {
	return CollectionRevocations + "/" + id
}

// CollectionOf deriva la colección de un path de documento (todo menos el
// último segmento).
func CollectionOf(path string) string {
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return ""
	}
	return path[:i]
}
