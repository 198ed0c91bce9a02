package server

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"strconv"
	"strings"
	"time"

	"github.com/sagar-1m/Event-Engage/internal/models"
	"github.com/sagar-1m/Event-Engage/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetEvents handles GET /api/events
func (s *Server) GetEvents(c *fiber.Ctx) error {
	p := parsePagination(c, 20)
	events, err := s.eventService.ListEvents(c.UserContext(), p.Limit, p.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, events)
}

// GetEvent handles GET /api/events/:id
func (s *Server) GetEvent(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	event, err := s.eventService.GetEvent(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, event)
}

// GetCreatedEvents handles GET /api/events/user/created
func (s *Server) GetCreatedEvents(c *fiber.Ctx) error {
	events, err := s.eventService.GetOrganizedEvents(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, events)
}

// GetJoinedEvents handles GET /api/events/user/joined
func (s *Server) GetJoinedEvents(c *fiber.Ctx) error {
	events, err := s.eventService.GetJoinedEvents(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, events)
}

// CreateEvent handles POST /api/events. The body may be JSON or multipart
// form data with an optional "image" file part.
func (s *Server) CreateEvent(c *fiber.Ctx) error {
	in := service.CreateEventInput{OrganizerID: currentUserID(c)}

	if isMultipart(c) {
		if err := s.parseCreateForm(c, &in); err != nil {
			return respondError(c, err)
		}
	} else {
		var req struct {
			Title       string                 `json:"title"`
			Description string                 `json:"description"`
			Date        string                 `json:"date"`
			Time        string                 `json:"time"`
			Location    string                 `json:"location"`
			Category    string                 `json:"category"`
			Capacity    int                    `json:"capacity"`
			Status      string                 `json:"status"`
			Image       models.EventImageInput `json:"image"`
		}
		if err := c.BodyParser(&req); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid request body"))
		}
		date, err := parseEventDate(req.Date)
		if err != nil {
			return respondError(c, err)
		}
		in.Title = req.Title
		in.Description = req.Description
		in.Date = date
		in.Time = req.Time
		in.Location = req.Location
		in.Category = models.EventCategory(req.Category)
		in.Capacity = req.Capacity
		in.Status = models.EventStatus(req.Status)
		in.Image = req.Image
	}

	event, err := s.eventService.CreateEvent(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, fiber.StatusCreated, event)
}

// UpdateEvent handles PUT /api/events/:id. Only supplied fields are merged.
func (s *Server) UpdateEvent(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var in service.UpdateEventInput
	if isMultipart(c) {
		if err := s.parseUpdateForm(c, &in); err != nil {
			return respondError(c, err)
		}
	} else {
		var req struct {
			Title       *string                 `json:"title"`
			Description *string                 `json:"description"`
			Date        *string                 `json:"date"`
			Time        *string                 `json:"time"`
			Location    *string                 `json:"location"`
			Category    *string                 `json:"category"`
			Capacity    *int                    `json:"capacity"`
			Status      *string                 `json:"status"`
			Image       *models.EventImageInput `json:"image"`
		}
		if err := c.BodyParser(&req); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid request body"))
		}
		in.Title = req.Title
		in.Description = req.Description
		in.Time = req.Time
		in.Location = req.Location
		in.Capacity = req.Capacity
		in.Image = req.Image
		if req.Date != nil {
			date, err := parseEventDate(*req.Date)
			if err != nil {
				return respondError(c, err)
			}
			in.Date = &date
		}
		if req.Category != nil {
			category := models.EventCategory(*req.Category)
			in.Category = &category
		}
		if req.Status != nil {
			status := models.EventStatus(*req.Status)
			in.Status = &status
		}
	}

	event, err := s.eventService.UpdateEvent(c.UserContext(), id, currentUserID(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, event)
}

// DeleteEvent handles DELETE /api/events/:id
func (s *Server) DeleteEvent(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.eventService.DeleteEvent(c.UserContext(), id, currentUserID(c)); err != nil {
		return respondError(c, err)
	}
	return respondMessage(c, fiber.StatusOK, "Event deleted successfully")
}

// JoinEvent handles POST /api/events/:id/join
func (s *Server) JoinEvent(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	event, err := s.eventService.JoinEvent(c.UserContext(), id, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, event)
}

// LeaveEvent handles POST /api/events/:id/leave
func (s *Server) LeaveEvent(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	event, err := s.eventService.LeaveEvent(c.UserContext(), id, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, event)
}

// UploadImage handles POST /api/events/upload. It stores the image without
// attaching it to an event and returns the variant URLs.
func (s *Server) UploadImage(c *fiber.Ctx) error {
	content, contentType, err := readImagePart(c)
	if err != nil {
		return respondError(c, err)
	}

	res, err := s.eventService.UploadCoverImage(c.UserContext(), content, contentType)
	if err != nil {
		return respondError(c, err)
	}

	return respondData(c, fiber.StatusCreated, fiber.Map{
		"url":       res.URL,
		"public_id": res.PublicID,
		"thumbnails": fiber.Map{
			"small":  res.ThumbnailURL,
			"medium": res.MediumURL,
		},
	})
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm)
}

// readImagePart reads the single "image" file part from a multipart body.
func readImagePart(c *fiber.Ctx) ([]byte, string, error) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		return nil, "", models.NewValidationError("No file uploaded")
	}
	return readFileHeader(fileHeader)
}

func readFileHeader(fileHeader *multipart.FileHeader) ([]byte, string, error) {
	f, err := fileHeader.Open()
	if err != nil {
		return nil, "", models.NewAssetUploadError(err)
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, "", models.NewAssetUploadError(err)
	}
	return content, fileHeader.Header.Get("Content-Type"), nil
}

// parseEventDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates.
func parseEventDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Time{}, models.NewValidationError("Invalid date format (use RFC 3339 or YYYY-MM-DD)")
}

func (s *Server) parseCreateForm(c *fiber.Ctx, in *service.CreateEventInput) error {
	date, err := parseEventDate(c.FormValue("date"))
	if err != nil {
		return err
	}

	capacity := 0
	if raw := c.FormValue("capacity"); raw != "" {
		capacity, err = strconv.Atoi(raw)
		if err != nil {
			return models.NewValidationError("Invalid capacity")
		}
	}

	in.Title = c.FormValue("title")
	in.Description = c.FormValue("description")
	in.Date = date
	in.Time = c.FormValue("time")
	in.Location = c.FormValue("location")
	in.Category = models.EventCategory(c.FormValue("category"))
	in.Capacity = capacity
	in.Status = models.EventStatus(c.FormValue("status"))

	if raw := c.FormValue("image"); raw != "" {
		if err := json.Unmarshal([]byte(quoteIfBare(raw)), &in.Image); err != nil {
			return models.NewValidationError("Invalid image value")
		}
	}

	if fileHeader, fhErr := c.FormFile("image"); fhErr == nil {
		content, contentType, readErr := readFileHeader(fileHeader)
		if readErr != nil {
			return readErr
		}
		in.ImageData = content
		in.ImageContentType = contentType
	}
	return nil
}

func (s *Server) parseUpdateForm(c *fiber.Ctx, in *service.UpdateEventInput) error {
	form, err := c.MultipartForm()
	if err != nil {
		return models.NewValidationError("Invalid form body")
	}

	strField := func(name string) *string {
		if vals, ok := form.Value[name]; ok && len(vals) > 0 {
			v := vals[0]
			return &v
		}
		return nil
	}

	in.Title = strField("title")
	in.Description = strField("description")
	in.Time = strField("time")
	in.Location = strField("location")

	if raw := strField("date"); raw != nil {
		date, err := parseEventDate(*raw)
		if err != nil {
			return err
		}
		in.Date = &date
	}
	if raw := strField("category"); raw != nil {
		category := models.EventCategory(*raw)
		in.Category = &category
	}
	if raw := strField("status"); raw != nil {
		status := models.EventStatus(*raw)
		in.Status = &status
	}
	if raw := strField("capacity"); raw != nil {
		capacity, err := strconv.Atoi(*raw)
		if err != nil {
			return models.NewValidationError("Invalid capacity")
		}
		in.Capacity = &capacity
	}
	if raw := strField("image"); raw != nil {
		var img models.EventImageInput
		if err := json.Unmarshal([]byte(quoteIfBare(*raw)), &img); err != nil {
			return models.NewValidationError("Invalid image value")
		}
		in.Image = &img
	}

	if fileHeader, fhErr := c.FormFile("image"); fhErr == nil {
		content, contentType, readErr := readFileHeader(fileHeader)
		if readErr != nil {
			return readErr
		}
		in.ImageData = content
		in.ImageContentType = contentType
	}
	return nil
}

// quoteIfBare turns a bare URL form value into a JSON string so the legacy
// single-URL image shape parses through the same decoder.
func quoteIfBare(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "\"") {
		return trimmed
	}
	b, _ := json.Marshal(trimmed)
	return string(b)
}
