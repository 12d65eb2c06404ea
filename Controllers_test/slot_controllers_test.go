package Controllers_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/MazaSebastian/DamafAPP/models"
	"github.com/MazaSebastian/DamafAPP/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotTemplateCRUD(t *testing.T) {
	env := setupTestEnv(t)
	slot := env.createSlot(t, "20:00", 3)
	assert.True(t, slot.Active)

	w := env.do(t, http.MethodPut, fmt.Sprintf("/admin/slots/%d", slot.ID), utils.RoleAdmin, map[string]interface{}{
		"start_time": "20:30", "capacity": 4, "is_takeaway": true, "active": false,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated models.SlotTemplate
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &updated))
	assert.Equal(t, "20:30", updated.StartTime)
	assert.False(t, updated.Active)
	assert.False(t, updated.IsDelivery)

	// inactive templates are hidden from customers but listed for operators
	w = env.do(t, http.MethodGet, "/slots?channel=takeaway", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var available []map[string]interface{}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &available))
	assert.Empty(t, available)

	w = env.do(t, http.MethodGet, "/admin/slots", utils.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var all []models.SlotTemplate
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &all))
	assert.Len(t, all, 1)

	w = env.do(t, http.MethodPost, "/admin/slots", utils.RoleAdmin, map[string]interface{}{
		"start_time": "25:00", "capacity": 1, "is_delivery": true,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = env.do(t, http.MethodPost, "/admin/slots", utils.RoleAdmin, map[string]interface{}{
		"start_time": "21:00", "capacity": 1,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodDelete, fmt.Sprintf("/admin/slots/%d", slot.ID), utils.RoleAdmin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodDelete, fmt.Sprintf("/admin/slots/%d", slot.ID), utils.RoleAdmin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProductEndpoints(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(t, http.MethodPost, "/admin/products", utils.RoleAdmin, map[string]interface{}{"name": "Papas", "price": "3.50"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var fries models.Product
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &fries))

	w = env.do(t, http.MethodPatch, fmt.Sprintf("/admin/products/%d", fries.ID), utils.RoleAdmin, map[string]interface{}{"active": false})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/products", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed []models.Product
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &listed))
	assert.Len(t, listed, 2)

	w = env.do(t, http.MethodPost, "/admin/products", utils.RoleAdmin, map[string]interface{}{"name": "Gratis", "price": "-1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
