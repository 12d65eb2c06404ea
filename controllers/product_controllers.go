package controllers

import (
	"net/http"

	"github.com/MazaSebastian/DamafAPP/services"
	"github.com/MazaSebastian/DamafAPP/utils"
	"github.com/gin-gonic/gin"
)

type ProductController struct {
	Products *services.ProductService
}

func NewProductController(products *services.ProductService) *ProductController {
	return &ProductController{Products: products}
}

func (pc *ProductController) ListProducts(c *gin.Context) {
	products, err := pc.Products.ListActive(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of products", products)
}

func (pc *ProductController) CreateProduct(c *gin.Context) {
	var body services.ProductInput
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondBadRequest(c, err)
		return
	}
	p, err := pc.Products.Create(c.Request.Context(), body)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Product created", p)
}

// UpdateProduct -> partial update; existing order items keep their price snapshot
func (pc *ProductController) UpdateProduct(c *gin.Context) {
	id, err := utils.ParseIDParam(c, "product_id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	var body services.ProductInput
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondBadRequest(c, err)
		return
	}
	p, err := pc.Products.Update(c.Request.Context(), id, body)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Product updated", p)
}
