package order

import (
	"fmt"

	"github.com/badrx15/ibericosgourmet/internal/dto"
	"github.com/badrx15/ibericosgourmet/internal/entity"
)

// Operator messages are Telegram HTML, written in the shop's voice.

func formatCODOrderMessage(o *entity.Order) string {
	return fmt.Sprintf(`🚚 <b>¡NUEVO PEDIDO CONTRAREEMBOLSO!</b> 🚚

🆔 <b>ID Pedido:</b> #%s
🍖 <b>Pack:</b> %s
🔢 <b>Contenido:</b> %d sobres (100g)
💰 <b>Total a Cobrar:</b> %s€ (Incluye +3€ COD)

👤 <b>Cliente:</b> %s
📧 <b>Email:</b> %s

📍 <b>DIRECCIÓN DE ENVÍO:</b>
%s
%s, CP: %s

⚠️ <i>Pedido pendiente de cobro en la entrega.</i>`,
		o.OrderID, o.ProductName, o.Quantity, o.Amount.StringFixed(2),
		o.CustomerName, o.CustomerEmail,
		o.Address, o.City, o.PostalCode,
	)
}

func formatConfirmedOrderMessage(o *entity.Order, via string) string {
	header := "📦 <b>¡NUEVO PEDIDO CONFIRMADO!</b> 📦"
	footer := "✅ <i>El pago ha sido verificado correctamente vía Dodo Payments.</i>"
	if via == TriggerRedirect {
		header += "\n(Confirmado vía Redirección)"
		footer = "✅ <i>El pago ha sido verificado en la redirección de éxito.</i>"
	}

	return fmt.Sprintf(`%s

🆔 <b>ID Pedido:</b> #%s
🍖 <b>Pack:</b> %s
🔢 <b>Contenido:</b> %d sobres (100g)
💰 <b>Total Pagado:</b> %s€

👤 <b>Cliente:</b> %s
📧 <b>Email:</b> %s

📍 <b>DIRECCIÓN DE ENVÍO:</b>
%s
%s, CP: %s

%s`,
		header,
		o.OrderID, o.ProductName, o.Quantity, o.Amount.StringFixed(2),
		o.CustomerName, o.CustomerEmail,
		o.Address, o.City, o.PostalCode,
		footer,
	)
}

func formatWholesaleMessage(req dto.WholesaleRequest) string {
	return fmt.Sprintf(`🏢 <b>¡NUEVA SOLICITUD MAYORISTA!</b> 🏢

🏢 <b>Empresa:</b> %s
📧 <b>Email:</b> %s
📞 <b>Teléfono:</b> %s
📊 <b>Volumen:</b> %s

💼 <i>Contactar para enviar tarifas personalizadas.</i>`,
		req.Company, req.Email, req.Phone, req.Volume,
	)
}
