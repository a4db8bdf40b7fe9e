// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the presentation socket.
const (
	BadSubprotocolError       = 3000 // Client connected with an unsupported subprotocol.
	InvalidTokenError         = 3001 // Presenter token was invalid or belongs to another presentation.
	PresentationNotFoundError = 3003 // Presentation id in the WS URL does not exist.
	PresentationClosedError   = 3004 // Presentation was closed while the socket was open.
)
