package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bsw-iitd/auth-server/internal/models"
	"github.com/bsw-iitd/auth-server/internal/services"
)

// ClientHandler is the admin-only client registry API.
type ClientHandler struct {
	clients *services.ClientService
}

func NewClientHandler(clients *services.ClientService) *ClientHandler {
	return &ClientHandler{clients: clients}
}

type clientRequest struct {
	Name         string `json:"name"`
	RedirectURIs string `json:"redirectUris"`
	AuthMode     string `json:"authMode"`
}

// Create registers a client. The response is the only place the plaintext
// secret appears until a rotation.
func (h *ClientHandler) Create(c *gin.Context) {
	var req clientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	client, err := h.clients.Create(services.CreateClientRequest{
		Name:         req.Name,
		RedirectURIs: req.RedirectURIs,
		AuthMode:     req.AuthMode,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrClientNameRequired):
			c.JSON(http.StatusBadRequest, gin.H{"error": "client name is required"})
		case errors.Is(err, services.ErrInvalidAuthMode):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid auth mode"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create client"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"client":       clientResponse(client),
		"clientSecret": client.ClientSecret,
	})
}

// List returns all registered clients, secrets omitted.
func (h *ClientHandler) List(c *gin.Context) {
	clients, err := h.clients.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list clients"})
		return
	}

	out := make([]gin.H, 0, len(clients))
	for i := range clients {
		out = append(out, clientResponse(&clients[i]))
	}
	c.JSON(http.StatusOK, gin.H{"clients": out})
}

// Get returns one client by public client ID.
func (h *ClientHandler) Get(c *gin.Context) {
	client, err := h.clients.FindByClientID(c.Param("client_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"client": clientResponse(client)})
}

// Update modifies name, redirect allow-list, or auth mode.
func (h *ClientHandler) Update(c *gin.Context) {
	var req clientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	client, err := h.findByParam(c)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
		return
	}

	updated, err := h.clients.Update(client.ID, services.UpdateClientRequest{
		Name:         req.Name,
		RedirectURIs: req.RedirectURIs,
		AuthMode:     req.AuthMode,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrClientNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
		case errors.Is(err, services.ErrInvalidAuthMode):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid auth mode"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update client"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"client": clientResponse(updated)})
}

// RotateSecret replaces the client secret; the previous one stops working
// immediately. The new secret appears once in this response.
func (h *ClientHandler) RotateSecret(c *gin.Context) {
	client, err := h.findByParam(c)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
		return
	}

	rotated, err := h.clients.RotateSecret(client.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to rotate secret"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"client":       clientResponse(rotated),
		"clientSecret": rotated.ClientSecret,
	})
}

// Delete removes the registration.
func (h *ClientHandler) Delete(c *gin.Context) {
	client, err := h.findByParam(c)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
		return
	}

	if err := h.clients.Delete(client.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete client"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "client deleted"})
}

func (h *ClientHandler) findByParam(c *gin.Context) (*models.Client, error) {
	return h.clients.FindByClientID(c.Param("client_id"))
}

func clientResponse(client *models.Client) gin.H {
	return gin.H{
		"id":           client.ID,
		"clientId":     client.ClientID,
		"name":         client.Name,
		"redirectUris": client.RedirectURIList(),
		"authMode":     client.AuthMode,
		"createdAt":    client.CreatedAt,
	}
}
