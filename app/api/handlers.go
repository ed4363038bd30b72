package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/dining-comb/app/database"
	"github.com/lysyi3m/dining-comb/app/timewindow"
)

type Handler struct {
	repo     database.Repository
	scraper  ScrapeService
	gate     FreshnessChecker
	sources  SourceCatalog
	loc      *time.Location
	now      func() time.Time
	inflight sync.WaitGroup
}

func NewHandler(repo database.Repository, scraper ScrapeService, gate FreshnessChecker, sources SourceCatalog, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.Local
	}
	return &Handler{
		repo:    repo,
		scraper: scraper,
		gate:    gate,
		sources: sources,
		loc:     loc,
		now:     time.Now,
	}
}

// Wait blocks until background scrapes started by the API have finished.
func (h *Handler) Wait() {
	h.inflight.Wait()
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": h.now().In(h.loc).Format(time.RFC3339),
	}

	if halls, err := h.repo.FindAllDiningHalls(c.Request.Context()); err == nil {
		health["halls"] = len(halls)
	}

	if h.sources != nil {
		health["loaded_sources"] = h.sources.Count()
	}
	health["scraping"] = h.scraper.Status(c.Request.Context()).IsScraping

	c.JSON(http.StatusOK, health)
}

func (h *Handler) ListHalls(c *gin.Context) {
	halls, err := h.repo.FindAllDiningHalls(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "find_halls", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	now := h.now().In(h.loc)
	out := make([]hallResponse, 0, len(halls))
	for _, hall := range halls {
		out = append(out, hallResponse{DiningHall: hall, Status: timewindow.Evaluate(hall.Hours, now)})
	}

	c.JSON(http.StatusOK, gin.H{
		"halls": out,
		"total": len(out),
	})
}

func (h *Handler) GetHallMenu(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing hall name parameter"})
		return
	}

	ctx := c.Request.Context()
	menu, err := h.repo.FindMenu(ctx, database.HallKey(name))
	if err != nil {
		slog.Error("Database error", "operation", "find_menu", "hall", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	today := timewindow.StartOfDay(h.now().In(h.loc))
	if menu == nil || menu.Date.Before(today) {
		c.JSON(http.StatusNotFound, gin.H{"error": "No menu for today"})
		return
	}

	var ids []string
	for _, p := range menu.MealPeriods {
		for _, s := range p.Stations {
			for _, ref := range s.Meals {
				ids = append(ids, ref.ID)
			}
		}
	}

	meals, err := h.repo.FindMealsByIDs(ctx, ids)
	if err != nil {
		slog.Error("Database error", "operation", "find_meals", "hall", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	byID := make(map[string]database.Meal, len(meals))
	for _, m := range meals {
		byID[m.ID] = m
	}

	c.JSON(http.StatusOK, resolveMenu(menu, byID))
}

func resolveMenu(menu *database.Menu, byID map[string]database.Meal) menuResponse {
	periods := make([]resolvedPeriod, 0, len(menu.MealPeriods))
	for _, p := range menu.MealPeriods {
		stations := make([]resolvedStation, 0, len(p.Stations))
		for _, s := range p.Stations {
			meals := make([]database.Meal, 0, len(s.Meals))
			for _, ref := range s.Meals {
				if meal, ok := byID[ref.ID]; ok {
					meals = append(meals, meal)
				}
			}
			stations = append(stations, resolvedStation{Name: s.Name, Meals: meals})
		}
		periods = append(periods, resolvedPeriod{Name: p.Name, Stations: stations})
	}

	return menuResponse{
		HallKey:     menu.HallKey,
		HallName:    menu.HallName,
		Date:        menu.Date,
		MealPeriods: periods,
		UpdatedAt:   menu.UpdatedAt,
	}
}

func (h *Handler) ListTrucks(c *gin.Context) {
	hereOnly, _ := strconv.ParseBool(c.DefaultQuery("here", "false"))

	trucks, err := h.repo.FindFoodTrucks(c.Request.Context(), hereOnly)
	if err != nil {
		slog.Error("Database error", "operation", "find_trucks", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	now := h.now().In(h.loc)
	out := make([]truckResponse, 0, len(trucks))
	for _, truck := range trucks {
		out = append(out, truckResponse{FoodTruck: truck, Status: timewindow.Evaluate(truck.Hours, now)})
	}

	c.JSON(http.StatusOK, gin.H{
		"trucks": out,
		"total":  len(out),
	})
}

func (h *Handler) GetScrapeStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.scraper.Status(c.Request.Context()))
}

// TriggerMenuScrape starts a full scrape in the background. Unless force=true
// it does nothing when today's menus are already current.
func (h *Handler) TriggerMenuScrape(c *gin.Context) {
	force, _ := strconv.ParseBool(c.DefaultQuery("force", "false"))
	ctx := c.Request.Context()

	if h.scraper.Status(ctx).IsScraping {
		c.JSON(http.StatusOK, gin.H{"message": "Scrape already in progress"})
		return
	}

	if !force && h.gate != nil {
		current, err := h.gate.IsCurrent(ctx)
		if err != nil {
			slog.Error("Freshness check failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start menu scrape"})
			return
		}
		if current {
			c.JSON(http.StatusOK, gin.H{"message": "Menus are already current"})
			return
		}
	}

	bg := context.WithoutCancel(ctx)
	h.inflight.Add(1)
	go func() {
		defer h.inflight.Done()
		if _, err := h.scraper.RunFullScrape(bg); err != nil {
			slog.Error("Menu scrape triggered via API failed", "error", err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"message": "Menu scrape started"})
}

func (h *Handler) TriggerTruckScrape(c *gin.Context) {
	result, err := h.scraper.RunTruckScrape(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		slog.Error("Truck scrape triggered via API failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Truck scrape failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}
